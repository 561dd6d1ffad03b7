// Package pricing estimates provider spend from audio and text usage.
package pricing

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"
)

// Rates is the list price of one model in USD. A zero rate means the model
// is not billed on that unit.
type Rates struct {
	PerAudioMinute  float64 `json:"per_audio_minute"`  // speech-to-text
	PerMillionChars float64 `json:"per_million_chars"` // text-to-speech
}

// Table maps model names to rates.
type Table struct {
	Models      map[string]Rates `json:"models"`
	Currency    string           `json:"currency"`
	LastUpdated time.Time        `json:"last_updated"`
}

// Default returns the built-in list prices.
func Default() *Table {
	return &Table{
		Currency:    "USD",
		LastUpdated: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Models: map[string]Rates{
			"whisper-1":              {PerAudioMinute: 0.006},
			"gpt-4o-transcribe":      {PerAudioMinute: 0.006},
			"gpt-4o-mini-transcribe": {PerAudioMinute: 0.003},
			"nova-2":                 {PerAudioMinute: 0.0043},
			"nova-3":                 {PerAudioMinute: 0.0043},
			"tts-1":                  {PerMillionChars: 15},
			"tts-1-hd":               {PerMillionChars: 30},
		},
	}
}

// Load reads a JSON price table and lays it over the defaults, so a file
// only needs the models it changes.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var file Table
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	t := Default()
	maps.Copy(t.Models, file.Models)
	if file.Currency != "" {
		t.Currency = file.Currency
	}
	if !file.LastUpdated.IsZero() {
		t.LastUpdated = file.LastUpdated
	}
	return t, nil
}

// Rates returns the rates for model.
func (t *Table) Rates(model string) (Rates, error) {
	r, ok := t.Models[model]
	if !ok {
		return Rates{}, fmt.Errorf("pricing data not found for model: %s", model)
	}
	return r, nil
}

// TranscriptionCost prices d of audio sent to model.
func (t *Table) TranscriptionCost(model string, d time.Duration) (float64, error) {
	r, err := t.Rates(model)
	if err != nil {
		return 0, err
	}
	return d.Minutes() * r.PerAudioMinute, nil
}

// SpeechCost prices synthesizing chars characters with model.
func (t *Table) SpeechCost(model string, chars int) (float64, error) {
	r, err := t.Rates(model)
	if err != nil {
		return 0, err
	}
	return float64(chars) / 1_000_000 * r.PerMillionChars, nil
}

// ModelNames returns the priced models, sorted.
func (t *Table) ModelNames() []string {
	return slices.Sorted(maps.Keys(t.Models))
}
