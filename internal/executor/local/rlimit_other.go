//go:build !linux

package local

import "time"

// applyLimits is a no-op where prlimit(2) is not available; the wall-clock
// timeout and process-group kill still apply.
func (r *Runner) applyLimits(int, time.Duration) {}
