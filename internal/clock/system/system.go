// Package system provides a real clock implementation.
package system

import "time"

// Clock implements harvest.Clock using time.Now, pinned to the target
// site's timezone so relative date forms resolve against the right day.
type Clock struct {
	loc *time.Location
}

// New creates a Clock in Asia/Shanghai, falling back to a fixed UTC+8
// zone when the tzdata lookup fails.
func New() *Clock {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's zone.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
