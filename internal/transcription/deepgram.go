package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
)

const deepgramProvider = "deepgram"

// maxErrorBody bounds how much of an error response is kept in the error text.
const maxErrorBody = 512

// Deepgram calls the prerecorded /v1/listen endpoint with the raw container
// payload as the request body.
type Deepgram struct {
	cfg        config.DeepgramConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDeepgram creates a Deepgram transcriber. A nil httpClient selects a
// pooled client without a global timeout; deadlines come from ctx.
func NewDeepgram(cfg config.DeepgramConfig, httpClient *http.Client, logger *zap.Logger) (*Deepgram, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram: API key cannot be empty")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("deepgram: base URL cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Deepgram{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("deepgram"),
	}, nil
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) endpoint() (string, error) {
	u, err := url.Parse(strings.TrimRight(d.cfg.BaseURL, "/") + "/v1/listen")
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("punctuate", "true")
	if d.cfg.Language != "" {
		q.Set("language", d.cfg.Language)
	}
	if d.cfg.Model != "" {
		q.Set("model", d.cfg.Model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Transcribe implements Transcriber.
func (d *Deepgram) Transcribe(ctx context.Context, req Request) (Result, error) {
	if len(req.Payload) == 0 {
		return Result{}, &Error{Provider: deepgramProvider, Kind: KindInvalid, Err: errors.New("empty payload")}
	}

	endpoint, err := d.endpoint()
	if err != nil {
		return Result{}, &Error{Provider: deepgramProvider, Kind: KindInvalid, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Payload))
	if err != nil {
		return Result{}, &Error{Provider: deepgramProvider, Kind: KindInvalid, Err: err}
	}
	httpReq.Header.Set("Authorization", "Token "+d.cfg.APIKey)
	httpReq.Header.Set("Content-Type", req.MIMEType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, classify(deepgramProvider, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classify(deepgramProvider, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return Result{}, &Error{
			Provider:   deepgramProvider,
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, &Error{
			Provider:   deepgramProvider,
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parse response JSON: %w", err),
		}
	}

	var result Result
	if ch := parsed.Results.Channels; len(ch) > 0 && len(ch[0].Alternatives) > 0 {
		alt := ch[0].Alternatives[0]
		result = Result{Text: alt.Transcript, Confidence: alt.Confidence}
	}
	result = normalize(result)

	d.logger.Debug("Deepgram transcription received",
		zap.Int("payload_bytes", len(req.Payload)),
		zap.Int("text_len", len(result.Text)),
		zap.Float64("confidence", result.Confidence))

	return result, nil
}
