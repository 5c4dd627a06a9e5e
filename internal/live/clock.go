package live

import "time"

// Timer is the part of time.Timer the channel uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates reconnect timers. Tests substitute a manual clock.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

// NewTimer wraps time.NewTimer.
func (SystemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time { return s.t.C }

func (s systemTimer) Stop() bool { return s.t.Stop() }
