package clock

import "time"

// Clock supplies wall-clock time for transaction timestamps.
type Clock interface {
	Now() time.Time
}

// System reads the host clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
