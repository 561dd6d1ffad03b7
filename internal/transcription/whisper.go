package transcription

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
)

const whisperProvider = "whisper"

// Whisper transcribes through the OpenAI audio transcription endpoint.
type Whisper struct {
	client *openai.Client
	cfg    config.WhisperConfig
	logger *zap.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(client *openai.Client, cfg config.WhisperConfig, logger *zap.Logger) (*Whisper, error) {
	if client == nil {
		return nil, errors.New("whisper: OpenAI client is not configured")
	}
	return &Whisper{client: client, cfg: cfg, logger: logger.Named("whisper")}, nil
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, req Request) (Result, error) {
	if len(req.Payload) == 0 {
		return Result{}, &Error{Provider: whisperProvider, Kind: KindInvalid, Err: errors.New("empty payload")}
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: req.Filename,
		Reader:   bytes.NewReader(req.Payload),
		Format:   responseFormat(w.cfg.Model),
		Language: w.cfg.Language,
	})
	if err != nil {
		return Result{}, classify(whisperProvider, openAIStatus(err), err)
	}

	result := normalize(Result{Text: resp.Text, Confidence: whisperConfidence(resp)})

	w.logger.Debug("Whisper transcription received",
		zap.Int("payload_bytes", len(req.Payload)),
		zap.Int("segments", len(resp.Segments)),
		zap.Float64("confidence", result.Confidence))

	return result, nil
}

// responseFormat picks the richest format the model supports. Only the
// whisper models return segments; the gpt-4o transcribe models accept plain
// json or text.
func responseFormat(model string) openai.AudioResponseFormat {
	if strings.HasPrefix(model, "whisper") {
		return openai.AudioResponseFormatVerboseJSON
	}
	return openai.AudioResponseFormatJSON
}

// whisperConfidence derives a [0, 1] score from the segment log
// probabilities, discounted by the model's no-speech probability. A
// response without segments carries full confidence.
func whisperConfidence(resp openai.AudioResponse) float64 {
	if len(resp.Segments) == 0 {
		return 1
	}
	var sum float64
	for _, seg := range resp.Segments {
		sum += math.Exp(seg.AvgLogprob) * (1 - seg.NoSpeechProb)
	}
	return sum / float64(len(resp.Segments))
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
