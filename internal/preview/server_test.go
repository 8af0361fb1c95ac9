package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/media"
)

type fakeController struct {
	sync.Mutex
	calls  []string
	seek   time.Duration
	loop   bool
	volume float64
}

func (c *fakeController) record(call string) {
	c.Lock()
	c.calls = append(c.calls, call)
	c.Unlock()
}

func (c *fakeController) Play() error  { c.record("play"); return nil }
func (c *fakeController) Pause() error { c.record("pause"); return nil }
func (c *fakeController) Stop() error  { c.record("stop"); return nil }

func (c *fakeController) Seek(t time.Duration) error {
	c.Lock()
	c.seek = t
	c.Unlock()
	c.record("seek")
	return nil
}

func (c *fakeController) StepForward(ctx context.Context) (*media.VideoFrame, error) {
	c.record("forward")
	return media.NewVideoFrame(4, 4, 0), nil
}

func (c *fakeController) StepBackward(ctx context.Context) (*media.VideoFrame, error) {
	c.record("backward")
	return nil, io.EOF
}

func (c *fakeController) SetLooping(loop bool) {
	c.Lock()
	c.loop = loop
	c.Unlock()
}

func (c *fakeController) SetVolume(v float64) {
	c.Lock()
	c.volume = v
	c.Unlock()
}

func dialPreview(t *testing.T, s *Server) (*websocket.Conn, func()) {
	ts := httptest.NewServer(s.Handler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	// Wait for the handler to subscribe.
	deadline := time.Now().Add(2 * time.Second)
	for s.frames.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, s.frames.Subscribers())

	return conn, func() {
		conn.Close()
		s.Close()
		ts.Close()
	}
}

func command(t *testing.T, conn *websocket.Conn, cmd Command) Reply {
	require.NoError(t, conn.WriteJSON(cmd))
	for {
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if mt != websocket.TextMessage {
			continue
		}
		var reply Reply
		require.NoError(t, json.Unmarshal(data, &reply))
		return reply
	}
}

func TestIndexPage(t *testing.T) {
	s := NewServer(&fakeController{}, 0)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestPublishSendsJPEG(t *testing.T) {
	s := NewServer(&fakeController{}, 0)
	conn, done := dialPreview(t, s)
	defer done()

	f := media.NewVideoFrame(16, 8, 0)
	defer f.Release()
	require.NoError(t, s.Publish(f))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestPublishWithoutViewers(t *testing.T) {
	s := NewServer(&fakeController{}, 0)
	f := media.NewVideoFrame(4, 4, 0)
	defer f.Release()
	assert.NoError(t, s.Publish(f))
}

func TestCommands(t *testing.T) {
	ctl := &fakeController{}
	s := NewServer(ctl, 0)
	conn, done := dialPreview(t, s)
	defer done()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	assert.Empty(t, command(t, conn, Command{Cmd: "play"}).Error)
	assert.Empty(t, command(t, conn, Command{Cmd: "pause"}).Error)
	assert.Empty(t, command(t, conn, Command{Cmd: "seek", Value: 2.5}).Error)
	assert.Empty(t, command(t, conn, Command{Cmd: "loop", Value: 1}).Error)
	assert.Empty(t, command(t, conn, Command{Cmd: "volume", Value: 0.5}).Error)
	assert.Empty(t, command(t, conn, Command{Cmd: "step", Value: 1}).Error)
	assert.Equal(t, io.EOF.Error(), command(t, conn, Command{Cmd: "step", Value: -1}).Error)
	assert.Contains(t, command(t, conn, Command{Cmd: "rewind"}).Error, "unknown command")
	assert.Empty(t, command(t, conn, Command{Cmd: "stop"}).Error)

	ctl.Lock()
	defer ctl.Unlock()
	assert.Equal(t, []string{"play", "pause", "seek", "forward", "backward", "stop"}, ctl.calls)
	assert.Equal(t, 2500*time.Millisecond, ctl.seek)
	assert.True(t, ctl.loop)
	assert.Equal(t, 0.5, ctl.volume)
}

func TestCloseDisconnectsViewers(t *testing.T) {
	s := NewServer(&fakeController{}, 0)
	conn, done := dialPreview(t, s)
	defer done()

	s.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
