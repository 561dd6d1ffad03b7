package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/pkg/pricing"
)

func TestMetrics_Sessions(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed("client")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsClosed.WithLabelValues("client")))
}

func TestMetrics_Chunks(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	m.ChunkDecided("dispatch", 20000)
	m.ChunkDecided("discard", 3)
	m.ChunkDecided("discard", 4)
	m.Transcription("ok", 120*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksDecided.WithLabelValues("dispatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksDecided.WithLabelValues("discard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptionRequests.WithLabelValues("ok")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.SessionOpened()
		m.SessionClosed("x")
		m.FrameReceived()
		m.FrameDropped()
		m.Degraded()
		m.ChunkDecided("discard", 0)
		m.ChunkEncoded(10)
		m.Transcription("ok", time.Second)
		m.Synthesis("ok", time.Second)
		m.PhraseCacheHit()
		m.Cost(metrics.CostSpeech, "tts-1", 0.1)
		m.HTTPRequest("GET", "/healthz", 200, time.Millisecond)
	})
}

func TestModule(t *testing.T) {
	var m *metrics.Metrics
	var g prometheus.Gatherer

	var u *metrics.UsageMeter

	app := fxtest.New(t,
		fx.Supply(&config.Config{}),
		fx.Provide(func() *zap.Logger { return zaptest.NewLogger(t) }),
		metrics.Module,
		fx.Populate(&m, &g, &u),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, m)
	require.NotNil(t, u)
	m.FrameReceived()

	families, err := g.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "voice_ingest_frames_received_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUsageMeter(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	u := metrics.NewUsageMeter(cfg, pricing.Default(), m, zaptest.NewLogger(t))

	u.Transcribed(30 * time.Second)
	u.Transcribed(30 * time.Second)
	u.Spoke(1000)

	assert.InDelta(t, 0.0043, testutil.ToFloat64(m.ProviderCost.WithLabelValues(metrics.CostTranscription, "nova-2")), 1e-12)
	assert.InDelta(t, 0.015, testutil.ToFloat64(m.ProviderCost.WithLabelValues(metrics.CostSpeech, "tts-1")), 1e-12)
}

func TestUsageMeter_UnpricedModel(t *testing.T) {
	cfg, err := config.Parse([]byte("synthesis:\n  provider: cartesia\n"))
	require.NoError(t, err)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	u := metrics.NewUsageMeter(cfg, pricing.Default(), m, zaptest.NewLogger(t))

	u.Spoke(1000)
	assert.Equal(t, 0, testutil.CollectAndCount(m.ProviderCost))
}

func TestNewPricingTable(t *testing.T) {
	table, err := metrics.NewPricingTable(&config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Contains(t, table.ModelNames(), "whisper-1")

	_, err = metrics.NewPricingTable(&config.Config{PricingFile: "does-not-exist.json"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
