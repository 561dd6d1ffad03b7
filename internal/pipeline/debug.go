package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// dumpChunk writes a dispatched chunk to the debug directory as WAV. It is a
// no-op unless pipeline.debug_dump_dir is set. Failures are only logged.
func (s *Session) dumpChunk(seq uint64, chunk []int16) {
	dir := s.cfg.DebugDumpDir
	if dir == "" {
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Debug dump skipped", zap.Error(fmt.Errorf("debug dir: %w", err)))
		return
	}

	enc, err := audio.WAVEncoder{}.Encode(chunk, s.cfg.TargetSampleRate, 1)
	if err != nil {
		s.logger.Warn("Debug dump skipped", zap.Error(err))
		return
	}

	filename := filepath.Join(dir, fmt.Sprintf("chunk_%s_%04d_%s.wav",
		s.id, seq, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(filename, enc.Payload, 0o644); err != nil {
		s.logger.Warn("Debug dump failed", zap.String("file", filename), zap.Error(err))
		return
	}

	s.logger.Debug("Saved debug WAV",
		zap.String("file", filename),
		zap.Int("samples", len(chunk)),
		zap.Int("rate_hz", s.cfg.TargetSampleRate),
		zap.Float64("duration_sec", float64(len(chunk))/float64(s.cfg.TargetSampleRate)))
}
