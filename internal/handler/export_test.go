package handler

import "time"

// SetNow replaces the response clock and returns a func restoring it.
func SetNow(f func() time.Time) (restore func()) {
	prev := now
	now = f
	return func() { now = prev }
}
