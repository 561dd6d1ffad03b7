package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

const openAIProvider = "openai"

// OpenAISpeechRate is the fixed rate of the "pcm" response format.
const OpenAISpeechRate = 24_000

// OpenAISpeech synthesizes through the OpenAI speech endpoint.
type OpenAISpeech struct {
	client *openai.Client
	cfg    config.OpenAISpeechConfig
	logger *zap.Logger
}

// NewOpenAISpeech creates an OpenAI speech synthesizer.
func NewOpenAISpeech(client *openai.Client, cfg config.OpenAISpeechConfig, logger *zap.Logger) (*OpenAISpeech, error) {
	if client == nil {
		return nil, errors.New("openai speech: OpenAI client is not configured")
	}
	return &OpenAISpeech{client: client, cfg: cfg, logger: logger.Named("openai_speech")}, nil
}

// Synthesize implements Synthesizer.
func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) (audio.Speech, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return audio.Speech{}, &Error{Provider: openAIProvider, StatusCode: openAIStatus(err), Err: err}
	}
	defer resp.Close()

	raw, err := io.ReadAll(resp)
	if err != nil {
		return audio.Speech{}, &Error{Provider: openAIProvider, Err: fmt.Errorf("read audio: %w", err)}
	}

	return decodePCM(openAIProvider, raw, OpenAISpeechRate)
}

// decodePCM turns little-endian 16-bit mono bytes into Speech.
func decodePCM(provider string, raw []byte, rate int) (audio.Speech, error) {
	if len(raw) == 0 {
		return audio.Speech{}, &Error{Provider: provider, Err: errors.New("empty audio response")}
	}
	if len(raw)%audio.BytesPerSample != 0 {
		raw = raw[:len(raw)-len(raw)%audio.BytesPerSample]
	}
	return audio.Speech{Samples: audio.LEToPCMInt16(raw), SampleRate: rate}, nil
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
