package services

import "time"

// Clock returns the current time. Services use it to decide "today".
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
