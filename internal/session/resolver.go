// Package session maps absolute instants onto the trading-session calendar.
//
// The calendar models an overnight continuous session: each trade day opens
// at 15:00 local time on the prior calendar date, and a fixed one-hour halt
// from 14:00 to 15:00 local splits consecutive sessions. Saturday has no
// session at all; Saturday data indicates upstream corruption and resolution
// fails loudly.
//
// Resolution is a pure function of (timestamp, zone). It consults no state,
// so any instant resolves to the same outcome bit-for-bit on every call.
package session

import (
	"fmt"
	"time"
)

// Halt window and session cutover, in local hours-of-day.
const (
	haltStartHour = 14
	cutoverHour   = 15
)

// DefaultZoneName is the reference exchange zone used when a caller does not
// configure one.
const DefaultZoneName = "America/Los_Angeles"

// Resolution is the outcome of resolving an instant: either a trade day
// (Day set, Halt false) or the daily halt window (Halt true, Day empty).
type Resolution struct {
	Day  string // ISO calendar date of the owning trade day
	Halt bool
}

// InvalidSessionError reports an instant that falls on a calendar day with
// no valid session (Saturday in the reference zone). The caller must not
// store the bar; for batch ingestion this aborts the whole batch.
type InvalidSessionError struct {
	Timestamp int64
	Local     time.Time
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf(
		"no valid session on Saturday per session calendar: timestamp %d (%s)",
		e.Timestamp, e.Local.Format("2006-01-02 15:04:05 MST"),
	)
}

// Resolve maps a UTC epoch timestamp onto the session calendar evaluated
// against local wall-clock time in zone.
//
// Rules, in order:
//  1. Saturday → *InvalidSessionError.
//  2. Local hour in [14:00, 15:00) → halt; the bar belongs to no session.
//  3. Local hour >= 15:00 → next calendar date's session.
//  4. Local hour < 14:00 → current calendar date's session.
func Resolve(timestamp int64, zone *time.Location) (Resolution, error) {
	local := time.Unix(timestamp, 0).In(zone)

	if local.Weekday() == time.Saturday {
		return Resolution{}, &InvalidSessionError{Timestamp: timestamp, Local: local}
	}

	hour := local.Hour()
	if hour >= haltStartHour && hour < cutoverHour {
		return Resolution{Halt: true}, nil
	}

	day := local
	if hour >= cutoverHour {
		// Post-halt resumption rolls into the next day's session.
		// AddDate handles month/year boundaries.
		day = local.AddDate(0, 0, 1)
	}
	return Resolution{Day: day.Format(time.DateOnly)}, nil
}

// DefaultZone loads the default reference zone. It fails only if the host
// has no timezone database for DefaultZoneName.
func DefaultZone() (*time.Location, error) {
	zone, err := time.LoadLocation(DefaultZoneName)
	if err != nil {
		return nil, fmt.Errorf("load default zone: %w", err)
	}
	return zone, nil
}
