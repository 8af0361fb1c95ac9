// Package preview serves a live view of playback over a websocket: JPEG
// frames go out as binary messages, JSON transport commands come in.
package preview

import (
	"bytes"
	"context"
	"image/jpeg"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/lanikai/alohaplay/internal/color"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
)

var log = logging.DefaultLogger.WithTag("preview")

// Controller is the transport a preview viewer can drive.
type Controller interface {
	Play() error
	Pause() error
	Stop() error
	Seek(t time.Duration) error
	StepForward(ctx context.Context) (*media.VideoFrame, error)
	StepBackward(ctx context.Context) (*media.VideoFrame, error)
	SetLooping(loop bool)
	SetVolume(v float64)
}

// Command is a transport request from a viewer, e.g.
//
//	{"cmd": "seek", "value": 12.5}
type Command struct {
	Cmd   string  `json:"cmd"`
	Value float64 `json:"value,omitempty"`
}

// Reply answers each Command.
type Reply struct {
	Cmd   string `json:"cmd"`
	Error string `json:"error,omitempty"`
}

const (
	// Frames buffered per viewer before the oldest is dropped.
	viewerBacklog = 2

	jpegQuality  = 75
	writeTimeout = 5 * time.Second
	stepTimeout  = 5 * time.Second
)

type Server struct {
	ctl        Controller
	frames     *Broadcaster
	upgrader   websocket.Upgrader
	maxConns   int
	httpServer *http.Server
}

// NewServer returns a preview server allowing at most maxConns concurrent
// connections, page loads included.
func NewServer(ctl Controller, maxConns int) *Server {
	s := &Server{
		ctl:    ctl,
		frames: NewBroadcaster(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		maxConns: maxConns,
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/ws", s.serveWebsocket)
	return mux
}

// ListenAndServe accepts connections on addr until Close.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info("Preview at http://%s/", l.Addr())
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	if s.maxConns > 0 {
		l = netutil.LimitListener(l, s.maxConns)
	}
	err := s.httpServer.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close disconnects every viewer and stops serving.
func (s *Server) Close() error {
	s.frames.Close()
	return s.httpServer.Close()
}

// Publish sends f to every viewer. Frames are dropped when nobody watches.
func (s *Server) Publish(f *media.VideoFrame) error {
	if s.frames.Subscribers() == 0 {
		return nil
	}
	img := color.RGB24ToRGBA(f.Bytes(), f.Width, f.Height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return errors.Wrap(err, "encoding preview frame")
	}
	_, err := s.frames.Write(buf.Bytes())
	return err
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// viewer is one websocket connection. gorilla/websocket allows only one
// concurrent writer, hence the lock.
type viewer struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (v *viewer) write(messageType int, data []byte) error {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return v.conn.WriteMessage(messageType, data)
}

func (v *viewer) writeJSON(reply Reply) error {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return v.conn.WriteJSON(reply)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	v := &viewer{conn: conn}
	frames := s.frames.Subscribe(viewerBacklog)
	log.Info("Viewer %s connected", r.RemoteAddr)

	go func() {
		defer s.frames.Unsubscribe(frames)
		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				log.Debug("Viewer %s: %v", r.RemoteAddr, err)
				return
			}
			reply := Reply{Cmd: cmd.Cmd}
			if err := s.execute(cmd); err != nil {
				reply.Error = err.Error()
			}
			if err := v.writeJSON(reply); err != nil {
				return
			}
		}
	}()

	// Runs until the subscription is closed by Unsubscribe or Close.
	for data := range frames {
		if err := v.write(websocket.BinaryMessage, data); err != nil {
			log.Debug("Viewer %s: %v", r.RemoteAddr, err)
			break
		}
	}
	conn.Close()
	log.Info("Viewer %s disconnected", r.RemoteAddr)
}

func (s *Server) execute(cmd Command) error {
	switch cmd.Cmd {
	case "play":
		return s.ctl.Play()
	case "pause":
		return s.ctl.Pause()
	case "stop":
		return s.ctl.Stop()
	case "seek":
		return s.ctl.Seek(time.Duration(cmd.Value * float64(time.Second)))
	case "step":
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		defer cancel()
		step := s.ctl.StepForward
		if cmd.Value < 0 {
			step = s.ctl.StepBackward
		}
		f, err := step(ctx)
		if err != nil {
			return err
		}
		defer f.Release()
		return s.Publish(f)
	case "loop":
		s.ctl.SetLooping(cmd.Value != 0)
		return nil
	case "volume":
		s.ctl.SetVolume(cmd.Value)
		return nil
	}
	return errors.Wrapf(errBadCommand, "%q", cmd.Cmd)
}
