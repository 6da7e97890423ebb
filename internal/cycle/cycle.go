// Package cycle computes GFS model cycle times.
//
// GFS runs four times a day at 00, 06, 12 and 18 UTC and its wave products
// are published roughly four hours after each run starts.
package cycle

import "time"

const (
	// Interval between model runs.
	Interval = 6 * time.Hour
	// Availability is how long after a run starts its output can be fetched.
	Availability = 4 * time.Hour
)

// Latest returns the most recent cycle whose output should be available at now.
func Latest(now time.Time) time.Time {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour()/6*6, 0, 0, 0, time.UTC)
	if now.Sub(start) < Availability {
		start = start.Add(-Interval)
	}
	return start
}

// Previous returns the cycle before c.
func Previous(c time.Time) time.Time {
	return c.Add(-Interval)
}

// DateString formats the cycle date as used in NOMADS paths (YYYYMMDD).
func DateString(c time.Time) string {
	return c.UTC().Format("20060102")
}

// HourString formats the cycle hour (HH).
func HourString(c time.Time) string {
	return c.UTC().Format("15")
}

// Label is a human readable cycle name, e.g. "20240301 06Z".
func Label(c time.Time) string {
	return DateString(c) + " " + HourString(c) + "Z"
}
