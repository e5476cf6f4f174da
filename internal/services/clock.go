package services

import "time"

// Clock supplies the current time. Injected so expiry and scheduling
// logic can be tested against fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSystemClock returns the wall clock.
func NewSystemClock() Clock { return systemClock{} }
