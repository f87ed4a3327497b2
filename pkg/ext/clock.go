package ext

import "time"

// Clock abstracts time.Now so stores and logs can be tested with a fixed time.
type Clock interface {
	Now() time.Time
}

func NewSystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// NewFixedClock returns a Clock frozen at t.
func NewFixedClock(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}
