package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

const cartesiaProvider = "cartesia"

// Cartesia synthesizes raw PCM through the Cartesia /tts/bytes endpoint.
type Cartesia struct {
	cfg        config.CartesiaConfig
	sampleRate int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCartesia creates a Cartesia synthesizer producing audio at sampleRate.
func NewCartesia(cfg config.CartesiaConfig, sampleRate int, httpClient *http.Client, logger *zap.Logger) (*Cartesia, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cartesia: API key cannot be empty")
	}
	if sampleRate <= 0 {
		return nil, &audio.InvalidRateError{SourceRate: sampleRate, TargetRate: sampleRate}
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Cartesia{
		cfg:        cfg,
		sampleRate: sampleRate,
		httpClient: httpClient,
		logger:     logger.Named("cartesia"),
	}, nil
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
}

// Synthesize implements Synthesizer.
func (c *Cartesia) Synthesize(ctx context.Context, text string) (audio.Speech, error) {
	body, err := json.Marshal(cartesiaRequest{
		ModelID:    c.cfg.ModelID,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: c.cfg.VoiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		},
	})
	if err != nil {
		return audio.Speech{}, &Error{Provider: cartesiaProvider, Err: err}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/tts/bytes"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return audio.Speech{}, &Error{Provider: cartesiaProvider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Cartesia-Version", c.cfg.Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return audio.Speech{}, &Error{Provider: cartesiaProvider, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Speech{}, &Error{Provider: cartesiaProvider, StatusCode: resp.StatusCode, Err: fmt.Errorf("read audio: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 512 {
			raw = raw[:512]
		}
		return audio.Speech{}, &Error{
			Provider:   cartesiaProvider,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(raw))),
		}
	}

	c.logger.Debug("Cartesia audio received", zap.Int("bytes", len(raw)))

	return decodePCM(cartesiaProvider, raw, c.sampleRate)
}
