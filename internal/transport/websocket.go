package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/pipeline"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// Binary WebSocket messages carry one frame in both directions:
//
//	offset 0  uint32 LE  sample rate
//	offset 4  uint16 LE  channels
//	offset 6  uint16     reserved
//	offset 8  int16 LE   interleaved PCM
//
// Text messages from the server are JSON session events.
const frameHeaderSize = 8

const (
	wsWriteTimeout = 5 * time.Second
	wsMaxMessage   = 1 << 20
)

func decodeFrame(data []byte, seq uint64) (audio.Frame, error) {
	if len(data) < frameHeaderSize {
		return audio.Frame{}, fmt.Errorf("frame of %d bytes is shorter than the header", len(data))
	}
	payload := data[frameHeaderSize:]
	if len(payload)%audio.BytesPerSample != 0 {
		return audio.Frame{}, fmt.Errorf("odd PCM payload of %d bytes", len(payload))
	}
	return audio.Frame{
		SampleRate: int(binary.LittleEndian.Uint32(data[0:4])),
		Channels:   int(binary.LittleEndian.Uint16(data[4:6])),
		Samples:    audio.LEToPCMInt16(payload),
		Sequence:   seq,
		Timestamp:  time.Now(),
	}, nil
}

func encodeFrame(samples []int16, rate, channels int) []byte {
	out := make([]byte, frameHeaderSize, frameHeaderSize+len(samples)*audio.BytesPerSample)
	binary.LittleEndian.PutUint32(out[0:4], uint32(rate))
	binary.LittleEndian.PutUint16(out[4:6], uint16(channels))
	return append(out, audio.PCMInt16ToLE(samples)...)
}

// eventMessage is the JSON form of a pipeline.Event.
type eventMessage struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Speech     *bool   `json:"speech,omitempty"`
	Energy     float64 `json:"energy,omitempty"`
	Failures   int     `json:"failures,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newEventMessage(e pipeline.Event) eventMessage {
	msg := eventMessage{
		Type:       string(e.Kind),
		SessionID:  e.SessionID.String(),
		Text:       e.Text,
		Confidence: e.Confidence,
		Energy:     e.Energy,
		Failures:   e.Failures,
	}
	if e.Kind == pipeline.EventChunk {
		speech := e.Speech
		msg.Speech = &speech
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

// wsPeer is the session's view of a WebSocket client: the closer released on
// teardown and the sink for spoken replies. gorilla connections allow one
// concurrent writer, so writes are serialized.
type wsPeer struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
	rate    atomic.Int32
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	p := &wsPeer{conn: conn}
	p.rate.Store(audio.TranscriptionSampleRate)
	return p
}

// SampleRate follows the rate of the client's most recent frame.
func (p *wsPeer) SampleRate() int { return int(p.rate.Load()) }

func (p *wsPeer) WriteSpeech(ctx context.Context, samples []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.write(websocket.BinaryMessage, encodeFrame(samples, p.SampleRate(), 1))
}

func (p *wsPeer) writeJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return p.conn.WriteJSON(v)
}

func (p *wsPeer) write(messageType int, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return p.conn.WriteMessage(messageType, data)
}

// Close sends a close frame and drops the connection without waiting for
// the read loop.
func (p *wsPeer) Close() error {
	var err error
	p.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	peer := newWSPeer(conn)
	session, err := s.manager.Open(peer, peer)
	if err != nil {
		s.logger.Warn("Session rejected", zap.Error(err))
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer func() { _ = session.Close() }()

	logger := s.logger.With(zap.String("session_id", session.ID().String()))
	if err := peer.writeJSON(eventMessage{Type: "session", SessionID: session.ID().String()}); err != nil {
		logger.Warn("Failed to announce session", zap.Error(err))
		return
	}

	go forwardEvents(session, peer, logger)
	s.readFrames(c.Request.Context(), conn, peer, session, logger)
}

func (s *Server) readFrames(ctx context.Context, conn *websocket.Conn, peer *wsPeer, session *pipeline.Session, logger *zap.Logger) {
	var seq uint64
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		seq++
		frame, err := decodeFrame(data, seq)
		if err != nil {
			logger.Debug("Malformed frame", zap.Uint64("sequence", seq), zap.Error(err))
			continue
		}

		err = session.OnFrame(ctx, frame)
		switch {
		case err == nil:
			peer.rate.Store(int32(frame.SampleRate))
		case errors.Is(err, pipeline.ErrInvalidFrame):
			logger.Debug("Invalid frame", zap.Uint64("sequence", seq), zap.Error(err))
		default:
			return
		}
	}
}

// forwardEvents relays session events to the client until the session
// closes its event channel.
func forwardEvents(session *pipeline.Session, peer *wsPeer, logger *zap.Logger) {
	for e := range session.Events() {
		if err := peer.writeJSON(newEventMessage(e)); err != nil {
			logger.Debug("Event not delivered", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
	}
}
