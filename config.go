//////////////////////////////////////////////////////////////////////////////
//
// Config contains tuning parameters for a Player
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohaplay

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Capacity of each stream's packet queue.
	PacketQueueCapacity int `json:"packetQueueCapacity" yaml:"packetQueueCapacity"`

	// Decoded frames buffered ahead of presentation.
	VideoQueueCapacity int `json:"videoQueueCapacity" yaml:"videoQueueCapacity"`
	AudioQueueCapacity int `json:"audioQueueCapacity" yaml:"audioQueueCapacity"`

	// A video frame is due once its time is at most this far ahead of the
	// playback position.
	Tolerance Duration `json:"tolerance" yaml:"tolerance"`

	// How long Stop and Seek wait for pipeline goroutines to exit.
	JoinTimeout Duration `json:"joinTimeout" yaml:"joinTimeout"`

	// Audio frames an AudioPump keeps in flight ahead of the playback
	// position.
	AudioBuffers int `json:"audioBuffers" yaml:"audioBuffers"`

	// Audio frames ending further than this behind the playback position
	// are discarded unplayed.
	AudioLateness Duration `json:"audioLateness" yaml:"audioLateness"`

	// Delivered frames kept for stepping backwards.
	StepHistory int `json:"stepHistory" yaml:"stepHistory"`

	Loop   bool    `json:"loop" yaml:"loop"`
	Volume float64 `json:"volume" yaml:"volume"`

	// Ignore audio streams entirely.
	DisableAudio bool `json:"disableAudio" yaml:"disableAudio"`
}

func DefaultConfig() Config {
	return Config{
		PacketQueueCapacity: 64,
		VideoQueueCapacity:  8,
		AudioQueueCapacity:  16,
		Tolerance:           0,
		JoinTimeout:         Duration(5 * time.Second),
		AudioBuffers:        3,
		AudioLateness:       Duration(250 * time.Millisecond),
		StepHistory:         32,
		Volume:              1,
	}
}

// LoadConfig reads a JSON or YAML (by extension) file over the defaults.
func LoadConfig(filePath string) (Config, error) {
	c := DefaultConfig()

	d, err := ioutil.ReadFile(filePath)
	if err != nil {
		return c, err
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(d, &c)
	default:
		err = json.Unmarshal(d, &c)
	}
	if err != nil {
		return c, errors.Wrapf(err, "parsing %s", filePath)
	}
	return c, c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.PacketQueueCapacity < 1:
		return errors.Errorf("packetQueueCapacity must be positive")
	case c.VideoQueueCapacity < 1 || c.AudioQueueCapacity < 1:
		return errors.Errorf("frame queue capacities must be positive")
	case c.Tolerance < 0:
		return errors.Errorf("tolerance must not be negative")
	case c.JoinTimeout <= 0:
		return errors.Errorf("joinTimeout must be positive")
	case c.StepHistory < 0:
		return errors.Errorf("stepHistory must not be negative")
	}
	return nil
}

// Duration is a time.Duration spelled like "250ms" in configuration files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string such as \"250ms\"")
	}
	return d.set(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}
