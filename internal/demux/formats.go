package demux

import (
	"os"

	"github.com/nareix/joy4/av/avutil"
	"github.com/nareix/joy4/format/flv"
	"github.com/nareix/joy4/format/mp4"
	"github.com/nareix/joy4/format/ts"
)

func openMP4(filename string) (Source, error) {
	log.Info("Opening file %s", filename)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	demuxer := mp4.NewDemuxer(file)
	src, err := newAVSource(demuxer, file)
	if err != nil {
		return nil, err
	}
	return &mp4Source{avSource: src, seeker: demuxer}, nil
}

func openTS(filename string) (Source, error) {
	log.Info("Opening file %s", filename)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return newAVSource(ts.NewDemuxer(file), file)
}

func openFLV(filename string) (Source, error) {
	log.Info("Opening file %s", filename)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return newAVSource(flv.NewDemuxer(file), file)
}

// openURL hands network inputs to joy4's format probing.
func openURL(scheme string) OpenFunc {
	return func(path string) (Source, error) {
		Init()
		uri := scheme + ":" + path
		log.Info("Opening %s", uri)
		demuxer, err := avutil.Open(uri)
		if err != nil {
			return nil, err
		}
		return newAVSource(demuxer, demuxer)
	}
}

func init() {
	for _, ext := range []string{".mp4", ".mov", ".m4v", ".m4a"} {
		RegisterFormat(ext, openMP4)
	}
	RegisterFormat(".ts", openTS)
	RegisterFormat(".flv", openFLV)
	RegisterFormat(".h264", openAnnexB)
	RegisterFormat(".264", openAnnexB)
	RegisterFormat("h264", openAnnexB)
	RegisterFormat("testsrc", openTestSource)
	for _, scheme := range []string{"rtmp", "rtsp", "http", "https"} {
		RegisterFormat(scheme, openURL(scheme))
	}
}
