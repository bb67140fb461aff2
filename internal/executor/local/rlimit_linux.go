package local

import (
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// applyLimits caps the resources of a started process with prlimit(2).
// The limits are inherited by every child it forks afterwards.
func (r *Runner) applyLimits(pid int, wall time.Duration) {
	cpu := uint64(wall.Seconds()) + 1
	limits := []struct {
		name     string
		resource int
		value    uint64
	}{
		{"cpu", unix.RLIMIT_CPU, cpu},
		{"fsize", unix.RLIMIT_FSIZE, uint64(r.config.MaxFileBytes)},
		{"as", unix.RLIMIT_AS, uint64(r.config.MemoryLimitBytes)},
	}

	for _, l := range limits {
		if l.value == 0 {
			continue
		}
		rl := unix.Rlimit{Cur: l.value, Max: l.value}
		if err := unix.Prlimit(pid, l.resource, &rl, nil); err != nil {
			r.logger.Debug("failed to apply resource limit",
				slog.Int("pid", pid),
				slog.String("limit", l.name),
				slog.String("error", err.Error()),
			)
		}
	}
}
