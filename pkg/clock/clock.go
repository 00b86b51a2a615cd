package clock

import "time"

// Clock is injected wherever scheduling decisions depend on the current
// time, so jobs and services can be tested with a frozen clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func System() Clock { return systemClock{} }

// Fixed always reports the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Set moves the fixed clock to t.
func (f *Fixed) Set(t time.Time) { f.T = t }
