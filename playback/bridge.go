package playback

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Bridge adapts a websocket client into the Renderer and AudioSurface the
// synchronizer drives. Commands flow out to the client, which owns the real
// frame renderer and audio element; events flow back in and are dispatched
// to the synchronizer by Listen.
type Bridge struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	writeMu sync.Mutex

	// Latest values reported by the client, readable without blocking on
	// the socket.
	frame     atomic.Int64
	audioTime atomic.Uint64
}

type bridgeCommand struct {
	Type    string  `json:"type"`
	Frame   int     `json:"frame,omitempty"`
	URL     string  `json:"url,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
}

type bridgeEvent struct {
	Type    string  `json:"type"`
	Frame   int     `json:"frame"`
	Seconds float64 `json:"seconds"`
	Error   string  `json:"error"`
}

func NewBridge(conn *websocket.Conn, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{conn: conn, logger: logger}
}

// Renderer returns the frame-renderer face of the bridge.
func (b *Bridge) Renderer() *BridgeRenderer { return &BridgeRenderer{b} }

// Audio returns the audio-element face of the bridge.
func (b *Bridge) Audio() *BridgeAudio { return &BridgeAudio{b} }

// Listen reads client events until the connection closes or ctx is
// cancelled, feeding them into the synchronizer. It runs on the caller's
// goroutine; command writes from the synchronizer are serialized separately.
func (b *Bridge) Listen(ctx context.Context, sync *Synchronizer) error {
	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var ev bridgeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("dropping malformed playback event", zap.Error(err))
			continue
		}

		switch ev.Type {
		case "timeupdate":
			b.audioTime.Store(math.Float64bits(ev.Seconds))
			sync.HandleTimeUpdate(ev.Seconds)
		case "frame":
			b.frame.Store(int64(ev.Frame))
		case "ended":
			sync.HandleAudioEnded()
		case "play":
			if err := sync.Play(); err != nil {
				b.logger.Warn("play request rejected", zap.Error(err))
				b.send(bridgeCommand{Type: "playBlocked"})
			}
		case "pause":
			sync.Pause()
		case "seek":
			sync.Seek(ev.Seconds)
		case "playError":
			b.logger.Warn("client reported audio error", zap.String("error", ev.Error))
			sync.Pause()
		default:
			b.logger.Debug("ignoring unknown playback event", zap.String("type", ev.Type))
		}
	}
}

func (b *Bridge) send(cmd bridgeCommand) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(cmd); err != nil {
		b.logger.Warn("failed to write playback command", zap.String("type", cmd.Type), zap.Error(err))
	}
}

// BridgeRenderer implements Renderer over the websocket.
type BridgeRenderer struct{ b *Bridge }

func (r *BridgeRenderer) SeekTo(frame int) {
	r.b.frame.Store(int64(frame))
	r.b.send(bridgeCommand{Type: "seekTo", Frame: frame})
}

func (r *BridgeRenderer) CurrentFrame() int {
	return int(r.b.frame.Load())
}

func (r *BridgeRenderer) Play() {
	r.b.send(bridgeCommand{Type: "rendererPlay"})
}

func (r *BridgeRenderer) Pause() {
	r.b.send(bridgeCommand{Type: "rendererPause"})
}

// BridgeAudio implements AudioSurface over the websocket. Play is optimistic:
// autoplay rejections surface later as a playError event, which Listen turns
// into a pause.
type BridgeAudio struct{ b *Bridge }

func (a *BridgeAudio) SetSource(url string) {
	a.b.audioTime.Store(0)
	a.b.send(bridgeCommand{Type: "setSource", URL: url})
}

func (a *BridgeAudio) SetCurrentTime(seconds float64) {
	a.b.audioTime.Store(math.Float64bits(seconds))
	a.b.send(bridgeCommand{Type: "setAudioTime", Seconds: seconds})
}

func (a *BridgeAudio) CurrentTime() float64 {
	return math.Float64frombits(a.b.audioTime.Load())
}

func (a *BridgeAudio) Play() error {
	a.b.send(bridgeCommand{Type: "audioPlay"})
	return nil
}

func (a *BridgeAudio) Pause() {
	a.b.send(bridgeCommand{Type: "audioPause"})
}
