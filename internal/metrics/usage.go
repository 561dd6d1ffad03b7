package metrics

import (
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/pkg/pricing"
)

// Cost kinds.
const (
	CostTranscription = "transcription"
	CostSpeech        = "speech"
)

// UsageMeter prices provider usage with a pricing table and adds it to the
// cost counter. Models missing from the table are logged once and not billed.
type UsageMeter struct {
	table  *pricing.Table
	m      *Metrics
	logger *zap.Logger

	transcriptionModel string
	speechModel        string
	unpriced           map[string]bool
}

// NewUsageMeter returns a meter for the models selected in cfg.
func NewUsageMeter(cfg *config.Config, table *pricing.Table, m *Metrics, logger *zap.Logger) *UsageMeter {
	u := &UsageMeter{
		table:              table,
		m:                  m,
		logger:             logger.Named("usage"),
		transcriptionModel: cfg.TranscriptionModel(),
		speechModel:        cfg.SpeechModel(),
		unpriced:           make(map[string]bool),
	}
	for _, model := range []string{u.transcriptionModel, u.speechModel} {
		if _, err := table.Rates(model); err != nil {
			u.unpriced[model] = true
			u.logger.Warn("No pricing for model, usage will not be costed", zap.String("model", model))
		}
	}
	return u
}

// Transcribed records d of audio sent for transcription.
func (u *UsageMeter) Transcribed(d time.Duration) {
	if u.unpriced[u.transcriptionModel] {
		return
	}
	usd, err := u.table.TranscriptionCost(u.transcriptionModel, d)
	if err != nil {
		return
	}
	u.m.Cost(CostTranscription, u.transcriptionModel, usd)
}

// Spoke records chars characters sent for synthesis.
func (u *UsageMeter) Spoke(chars int) {
	if u.unpriced[u.speechModel] {
		return
	}
	usd, err := u.table.SpeechCost(u.speechModel, chars)
	if err != nil {
		return
	}
	u.m.Cost(CostSpeech, u.speechModel, usd)
}
