// Package pipeline turns a stream of transport frames into transcripts and
// spoken replies, one independent worker per session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/internal/responder"
	"github.com/Raikerian/go-voice-ingest/internal/synthesis"
	"github.com/Raikerian/go-voice-ingest/internal/transcription"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
	"github.com/Raikerian/go-voice-ingest/pkg/resilience"
	"github.com/Raikerian/go-voice-ingest/pkg/util"
)

// Close reasons reported in logs and metrics.
const (
	ReasonClient   = "client"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// Speaker turns reply text into speech and plays it to a sink.
type Speaker interface {
	Synthesize(ctx context.Context, text string) (audio.Speech, error)
	Fallback(ctx context.Context) (audio.Speech, error)
	Play(ctx context.Context, speech audio.Speech, sink synthesis.Sink) error
}

// UsageRecorder is told about billable provider usage.
type UsageRecorder interface {
	Transcribed(audio time.Duration)
	Spoke(chars int)
}

// Dependencies are the collaborators shared by all sessions. Responder and
// Speaker may be nil; transcripts and replies are then only reported as
// events. Usage may be nil.
type Dependencies struct {
	Transcriber transcription.Transcriber
	Responder   responder.Responder
	Speaker     Speaker
	Usage       UsageRecorder
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Session is one active call. Frames are handed over with OnFrame and
// processed in arrival order by the session's worker goroutine, which owns
// the converter, the buffer and the state machine exclusively.
type Session struct {
	id        uuid.UUID
	createdAt time.Time
	cfg       config.PipelineConfig
	deps      Dependencies
	logger    *zap.Logger

	peer     io.Closer
	sink     synthesis.Sink
	onClosed func(*Session, string)

	frames  chan audio.Frame
	replies chan string
	events  chan Event

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	watchdog *util.Watchdog

	mu       sync.Mutex
	reason   string
	closeErr error

	state *fsm.FSM

	// worker-owned
	converter *audio.StreamConverter
	highPass  *audio.HighPassFilter
	buffer    *audio.RingBuffer
	gate      audio.EnergyGate
	encoder   audio.Encoder
	failures  *resilience.FailureTracker
	chunks    uint64
}

// eventBuffer is the number of events held for a slow consumer before new
// events are dropped.
const eventBuffer = 64

func newSession(id uuid.UUID, cfg config.PipelineConfig, deps Dependencies, peer io.Closer, sink synthesis.Sink) (*Session, error) {
	if deps.Transcriber == nil {
		return nil, errors.New("pipeline: transcriber is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	buffer, err := audio.NewRingBuffer(cfg.BufferDurationSeconds, cfg.TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	encoder, err := newEncoder(cfg.Container)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger.Named("session").With(zap.String("session_id", id.String()))
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:        id,
		createdAt: time.Now(),
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		peer:      peer,
		sink:      sink,
		frames:    make(chan audio.Frame, max(1, cfg.FrameQueueSize)),
		replies:   make(chan string, max(1, cfg.ReplyQueueSize)),
		events:    make(chan Event, eventBuffer),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		watchdog:  util.NewWatchdog(cfg.IdleTimeout),
		state:     newStateMachine(logger),
		buffer:    buffer,
		gate:      audio.NewEnergyGate(cfg.VADEnergyThreshold),
		encoder:   encoder,
		failures:  resilience.NewFailureTracker(cfg.MaxConsecutiveFailures),
	}, nil
}

func newEncoder(container string) (audio.Encoder, error) {
	switch container {
	case "", config.ContainerWAV:
		return audio.WAVEncoder{}, nil
	case config.ContainerOpus:
		return audio.OpusEncoder{Bitrate: audio.DefaultOpusBitrate}, nil
	default:
		return nil, fmt.Errorf("pipeline: unknown container %q", container)
	}
}

func (s *Session) start() {
	s.wg.Add(1)
	go s.replyLoop()
	go s.run()
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current processing state.
func (s *Session) State() State { return State(s.state.Current()) }

// Events delivers session notifications. The channel is closed after
// EventClosed. Events are dropped when the consumer falls behind.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// OnFrame queues a frame for processing. It blocks while the queue is full
// and returns ErrSessionClosed once the session is closing.
func (s *Session) OnFrame(ctx context.Context, f audio.Frame) error {
	if err := validateFrame(f); err != nil {
		s.deps.Metrics.FrameDropped()
		return err
	}
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}

	select {
	case s.frames <- f:
		s.deps.Metrics.FrameReceived()
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateFrame(f audio.Frame) error {
	switch {
	case f.SampleRate < audio.MinSampleRate || f.SampleRate > audio.MaxSampleRate:
		return fmt.Errorf("%w: %w", ErrInvalidFrame, &audio.InvalidRateError{SourceRate: f.SampleRate, TargetRate: f.SampleRate})
	case f.Channels < 1:
		return fmt.Errorf("%w: %d channels", ErrInvalidFrame, f.Channels)
	case len(f.Samples)%f.Channels != 0:
		return fmt.Errorf("%w: %d samples do not divide into %d channels", ErrInvalidFrame, len(f.Samples), f.Channels)
	}
	return nil
}

// Close cancels in-flight work, discards buffered audio, releases the
// transport and waits for the workers to exit. It is safe to call more
// than once.
func (s *Session) Close() error {
	return s.closeWithReason(ReasonClient)
}

func (s *Session) closeWithReason(reason string) error {
	s.setReason(reason)
	s.cancel()
	<-s.done
	return s.closeErr
}

func (s *Session) setReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		s.reason = reason
	}
}

func (s *Session) closeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) emit(e Event) {
	e.SessionID = s.id
	e.At = time.Now()
	select {
	case s.events <- e:
	default:
		s.logger.Debug("Event dropped, consumer is behind", zap.String("kind", string(e.Kind)))
	}
}

func (s *Session) fire(event string) {
	if err := s.state.Event(context.Background(), event); err != nil {
		s.logger.Error("Invalid state transition",
			zap.String("event", event),
			zap.String("state", s.state.Current()),
			zap.Error(err))
	}
}

func (s *Session) run() {
	defer s.finish()

	s.logger.Info("Session started",
		zap.Int("target_rate_hz", s.cfg.TargetSampleRate),
		zap.Int("chunk_samples", s.buffer.Target()),
		zap.Float64("vad_threshold", s.gate.Threshold()))

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.watchdog.Expired():
			s.setReason(ReasonIdle)
			s.logger.Info("Session idle, closing", zap.Duration("idle_timeout", s.cfg.IdleTimeout))
			return
		case f := <-s.frames:
			s.watchdog.Kick()
			s.processFrame(f)
		}
	}
}

func (s *Session) finish() {
	s.cancel()
	s.watchdog.Stop()
	s.wg.Wait()

	s.fire(evClose)

	discarded := s.buffer.Pending()
	s.buffer.Reset()
	if s.converter != nil {
		s.converter.Reset()
	}

	var closeErr error
	if s.peer != nil {
		closeErr = s.peer.Close()
	}

	s.mu.Lock()
	s.closeErr = closeErr
	if s.reason == "" {
		s.reason = ReasonClient
	}
	reason := s.reason
	s.mu.Unlock()

	s.logger.Info("Session closed",
		zap.String("reason", reason),
		zap.Uint64("chunks", s.chunks),
		zap.Int("discarded_samples", discarded),
		zap.Duration("lifetime", time.Since(s.createdAt)))

	s.emit(Event{Kind: EventClosed})
	close(s.events)

	if s.onClosed != nil {
		s.onClosed(s, reason)
	}
	close(s.done)
}

func (s *Session) processFrame(f audio.Frame) {
	if s.ctx.Err() != nil {
		return
	}
	if s.State() == StateIdle {
		s.fire(evReceive)
	}

	if err := s.ensureConverter(f.SampleRate); err != nil {
		s.logger.Warn("Dropping frame", zap.Uint64("sequence", f.Sequence), zap.Error(err))
		return
	}

	mono := audio.Downmix(f.Samples, f.Channels)
	if s.highPass != nil {
		mono = s.highPass.Process(mono)
	}

	chunk, ok := s.buffer.Push(s.converter.Process(mono))
	for ok {
		if s.ctx.Err() != nil {
			return
		}
		s.handleChunk(chunk)
		chunk, ok = s.buffer.Next()
	}
}

// ensureConverter builds the stream converter for rate, replacing it when
// the transport changes its rate mid-session.
func (s *Session) ensureConverter(rate int) error {
	if s.converter != nil && s.converter.SourceRate() == rate {
		return nil
	}
	if s.converter != nil {
		s.logger.Info("Source rate changed",
			zap.Int("from_hz", s.converter.SourceRate()),
			zap.Int("to_hz", rate))
	}

	converter, err := audio.NewStreamConverter(rate, s.cfg.TargetSampleRate)
	if err != nil {
		return err
	}
	s.converter = converter

	s.highPass = nil
	if s.cfg.HighPassCutoffHz > 0 {
		hp, err := audio.NewHighPassFilter(s.cfg.HighPassCutoffHz, rate)
		if err != nil {
			s.logger.Warn("High-pass filter disabled", zap.Int("rate_hz", rate), zap.Error(err))
		} else {
			s.highPass = hp
		}
	}
	return nil
}

func (s *Session) handleChunk(chunk []int16) {
	s.chunks++
	seq := s.chunks

	s.fire(evFlush)
	isSpeech, energy := s.gate.Classify(chunk)
	s.emit(Event{Kind: EventChunk, Speech: isSpeech, Energy: energy})

	if !isSpeech {
		s.deps.Metrics.ChunkDecided("discard", energy)
		s.fire(evDiscard)
		s.logger.Debug("Chunk below energy threshold, discarded",
			zap.Uint64("chunk", seq),
			zap.Float64("energy", energy))
		s.fire(evResume)
		return
	}

	s.deps.Metrics.ChunkDecided("dispatch", energy)
	s.fire(evDispatch)
	s.dispatch(seq, chunk, energy)
	s.fire(evResume)
}

func (s *Session) dispatch(seq uint64, chunk []int16, energy float64) {
	enc, err := s.encoder.Encode(chunk, s.cfg.TargetSampleRate, 1)
	if err != nil {
		s.logger.Warn("Chunk dropped, encoding failed", zap.Uint64("chunk", seq), zap.Error(err))
		return
	}
	if enc.RateChanged {
		s.logger.Info("Encoder changed the sample rate",
			zap.Int("requested_hz", s.cfg.TargetSampleRate),
			zap.Int("encoded_hz", enc.SampleRate))
	}
	s.deps.Metrics.ChunkEncoded(len(enc.Payload))
	s.dumpChunk(seq, chunk)

	if ce := s.logger.Check(zapcore.DebugLevel, "Dispatching chunk"); ce != nil {
		ce.Write(
			zap.Uint64("chunk", seq),
			zap.Float64("energy", energy),
			zap.Float64("dominant_hz", audio.DominantFrequency(chunk, s.cfg.TargetSampleRate)),
			zap.String("mime_type", enc.MIMEType),
			zap.Int("payload_bytes", len(enc.Payload)))
	}

	result, err := s.transcribe(transcription.NewRequest(enc))
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		s.recordFailure(seq, err)
		return
	}
	s.recordSuccess()
	if s.deps.Usage != nil {
		s.deps.Usage.Transcribed(time.Duration(len(chunk)) * time.Second / time.Duration(s.cfg.TargetSampleRate))
	}

	if result.NoSpeech() {
		s.logger.Debug("No speech in transcript", zap.Uint64("chunk", seq))
		return
	}

	s.logger.Info("Transcript accepted",
		zap.Uint64("chunk", seq),
		zap.Int("text_len", len(result.Text)),
		zap.Float64("confidence", result.Confidence))
	s.emit(Event{Kind: EventTranscript, Text: result.Text, Confidence: result.Confidence})

	select {
	case s.replies <- result.Text:
	default:
		s.logger.Warn("Reply queue full, transcript not answered", zap.Uint64("chunk", seq))
	}
}

type transcribeOutcome struct {
	result transcription.Result
	err    error
}

// transcribe bounds the provider call by the transcription timeout even if
// the provider ignores its context.
func (s *Session) transcribe(req transcription.Request) (transcription.Result, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TranscriptionTimeout)
	defer cancel()

	ch := make(chan transcribeOutcome, 1)
	go func() {
		res, err := s.deps.Transcriber.Transcribe(ctx, req)
		ch <- transcribeOutcome{result: res, err: err}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		kind := transcription.KindTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = transcription.KindCanceled
		}
		return transcription.Result{}, &transcription.Error{Provider: "pipeline", Kind: kind, Err: ctx.Err()}
	}
}

func (s *Session) recordFailure(seq uint64, err error) {
	crossed := s.failures.Failure()
	s.logger.Warn("Transcription failed, chunk dropped",
		zap.Uint64("chunk", seq),
		zap.Int("consecutive_failures", s.failures.Consecutive()),
		zap.Error(err))

	if crossed {
		s.deps.Metrics.Degraded()
		s.logger.Error("Transcription degraded",
			zap.Int("consecutive_failures", s.failures.Consecutive()))
		s.emit(Event{Kind: EventDegraded, Failures: s.failures.Consecutive(), Err: err})
	}
}

func (s *Session) recordSuccess() {
	if s.failures.Success() {
		s.logger.Info("Transcription recovered")
		s.emit(Event{Kind: EventRecovered})
	}
}

func (s *Session) replyLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.replies:
			s.reply(text)
		}
	}
}

func (s *Session) reply(transcript string) {
	if s.deps.Responder == nil {
		return
	}

	// generation is bounded by the synthesis timeout; playback runs in real
	// time and is bounded only by the session
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SynthesisTimeout)
	defer cancel()

	text, err := s.deps.Responder.Respond(ctx, transcript)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn("Reply generation failed", zap.Error(err))
		}
		return
	}
	s.emit(Event{Kind: EventReply, Text: text})

	if s.deps.Speaker == nil || s.sink == nil {
		return
	}

	speech, err := s.deps.Speaker.Synthesize(ctx, text)
	switch {
	case err == nil:
		if s.deps.Usage != nil {
			s.deps.Usage.Spoke(len(text))
		}
	case s.ctx.Err() != nil:
		return
	default:
		s.logger.Warn("Synthesis failed, playing fallback phrase", zap.Error(err))
		if speech, err = s.deps.Speaker.Fallback(ctx); err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warn("Fallback phrase failed, reply skipped", zap.Error(err))
			}
			return
		}
	}

	if err := s.deps.Speaker.Play(s.ctx, speech, s.sink); err != nil && s.ctx.Err() == nil {
		s.logger.Warn("Writing reply to sink failed",
			zap.Duration("speech", speech.Duration()),
			zap.Error(err))
	}
}
