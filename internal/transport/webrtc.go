package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/pipeline"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

const (
	iceGatheringTimeout = 10 * time.Second
	rtpBufferSize       = 1500
)

type offerRequest struct {
	Type string `json:"type" binding:"required"`
	SDP  string `json:"sdp" binding:"required"`
}

type offerResponse struct {
	Type      string `json:"type"`
	SDP       string `json:"sdp"`
	SessionID string `json:"session_id"`
}

// rtcPeer ties a session to a pion peer connection. Inbound Opus is decoded
// into frames; replies are encoded back to Opus on the outbound track and
// paced in real time.
type rtcPeer struct {
	pc     *webrtc.PeerConnection
	track  *webrtc.TrackLocalStaticSample
	codec  *audio.OpusCodec
	logger *zap.Logger

	writeMu sync.Mutex
	framer  *audio.Framer
	once    sync.Once
}

func (p *rtcPeer) SampleRate() int { return audio.WebRTCSampleRate }

func (p *rtcPeer) WriteSpeech(ctx context.Context, samples []int16) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	frames := p.framer.Push(samples)
	if tail := p.framer.Flush(); tail != nil {
		frames = append(frames, tail)
	}

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	for _, frame := range frames {
		packet, err := p.codec.Encode(frame)
		if err != nil {
			return err
		}
		if err := p.track.WriteSample(media.Sample{Data: packet, Duration: audio.FrameDuration}); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close releases the codec and starts tearing down the peer connection,
// returning at once; pion waits for its own goroutines, which may be blocked
// on the session.
func (p *rtcPeer) Close() error {
	p.once.Do(func() {
		p.codec.Close()
		go func() {
			if err := p.pc.Close(); err != nil {
				p.logger.Debug("Peer connection close", zap.Error(err))
			}
		}()
	})
	return nil
}

func (s *Server) handleOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type != webrtc.SDPTypeOffer.String() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected an offer"})
		return
	}

	peer, err := s.newRTCPeer()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create peer connection"})
		return
	}

	session, err := s.manager.Open(peer, peer)
	if err != nil {
		_ = peer.pc.Close()
		c.JSON(openStatus(err), gin.H{"error": err.Error()})
		return
	}
	logger := s.logger.With(zap.String("session_id", session.ID().String()))

	peer.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		logger.Info("Audio track received",
			zap.String("codec", track.Codec().MimeType),
			zap.Uint32("ssrc", uint32(track.SSRC())))
		go readTrack(track, peer.codec, session, logger)
	})
	peer.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Debug("Peer connection state", zap.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			go func() { _ = session.Close() }()
		}
	})

	answer, err := negotiate(c.Request.Context(), peer.pc, req.SDP)
	if err != nil {
		logger.Warn("WebRTC negotiation failed", zap.Error(err))
		_ = session.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go logEvents(session, logger)

	c.JSON(http.StatusOK, offerResponse{
		Type:      answer.Type.String(),
		SDP:       answer.SDP,
		SessionID: session.ID().String(),
	})
}

func (s *Server) newRTCPeer() (*rtcPeer, error) {
	pc, err := webrtc.NewPeerConnection(s.rtc)
	if err != nil {
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "voice-ingest")
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	// RTCP must be read for interceptors to run
	go func() {
		buf := make([]byte, rtpBufferSize)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	codec, err := audio.NewOpusCodec()
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	return &rtcPeer{
		pc:     pc,
		track:  track,
		codec:  codec,
		logger: s.logger,
		framer: audio.NewFramer(audio.WebRTCFrameSize),
	}, nil
}

// negotiate applies the remote offer and returns the answer once ICE
// gathering is complete, so the client needs no trickle signalling.
func negotiate(ctx context.Context, pc *webrtc.PeerConnection, sdp string) (*webrtc.SessionDescription, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, iceGatheringTimeout)
	defer cancel()
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, errors.New("ice gathering timed out")
	}
	return pc.LocalDescription(), nil
}

// readTrack decodes inbound RTP into frames until the track ends or the
// session stops accepting frames.
func readTrack(track *webrtc.TrackRemote, codec *audio.OpusCodec, session *pipeline.Session, logger *zap.Logger) {
	buf := make([]byte, rtpBufferSize)
	packet := &rtp.Packet{}
	var seq uint64

	for {
		n, _, err := track.Read(buf)
		if err != nil {
			logger.Debug("Track ended", zap.Error(err))
			return
		}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			logger.Debug("Bad RTP packet", zap.Error(err))
			continue
		}
		if len(packet.Payload) == 0 {
			continue
		}

		pcm, err := codec.Decode(packet.Payload)
		if err != nil {
			logger.Debug("Opus decode failed", zap.Uint16("rtp_seq", packet.SequenceNumber), zap.Error(err))
			continue
		}

		seq++
		err = session.OnFrame(context.Background(), audio.Frame{
			Samples:    pcm,
			Channels:   audio.WebRTCChannels,
			SampleRate: audio.WebRTCSampleRate,
			Sequence:   seq,
			Timestamp:  time.Now(),
		})
		if errors.Is(err, pipeline.ErrSessionClosed) {
			return
		}
	}
}

// logEvents logs what a WebRTC session produces; the client only hears the
// replies.
func logEvents(session *pipeline.Session, logger *zap.Logger) {
	for e := range session.Events() {
		switch e.Kind {
		case pipeline.EventTranscript:
			logger.Debug("Transcript", zap.String("text", e.Text), zap.Float64("confidence", e.Confidence))
		case pipeline.EventReply:
			logger.Debug("Reply", zap.String("text", e.Text))
		case pipeline.EventDegraded:
			logger.Warn("Session degraded", zap.Int("failures", e.Failures), zap.Error(e.Err))
		}
	}
}
