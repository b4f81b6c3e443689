package logging

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ProgressLogger is a pgingest.ProgressSink for non-interactive output.
// Fetch progress is reported at most once per step bytes (and once at completion)
// through Verbose; batches are ignored because the orchestrator already logs them.
type ProgressLogger struct {
	logger   pgingest.Logger
	step     int64
	lastSeen int64
}

// DefaultProgressStep is the byte interval between fetch progress lines.
const DefaultProgressStep = 16 << 20

// NewProgressLogger creates a sink that logs through logger.
func NewProgressLogger(logger pgingest.Logger, step int64) *ProgressLogger {
	if step <= 0 {
		step = DefaultProgressStep
	}
	return &ProgressLogger{logger: logger, step: step}
}

func (p *ProgressLogger) FetchProgress(transferred, total int64) {
	done := total >= 0 && transferred >= total
	if !done && transferred-p.lastSeen < p.step {
		return
	}
	p.lastSeen = transferred
	if total < 0 {
		p.logger.Verbose("Downloaded %s", FormatBytes(transferred))
		return
	}
	p.logger.Verbose("Downloaded %s of %s", FormatBytes(transferred), FormatBytes(total))
}

func (p *ProgressLogger) BatchLoaded(int, int64, time.Duration) {}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}
