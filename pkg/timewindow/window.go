// Package timewindow computes start/end timestamp windows from partial
// caller input, used to parameterize time-scoped API requests.
package timewindow

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrInvalidWindow is returned when an explicit start is not strictly
// before the explicit end. Boundaries are never swapped or clamped.
var ErrInvalidWindow = errors.New("start must be strictly before end")

// Window is an ordered pair of timestamps with Start strictly before End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Resolve computes a window from partial input. A zero time means absent.
//
//   - Both absent: the window starts now and spans intervalDays.
//   - Only start given: the window spans intervalDays from start.
//   - Both given: used verbatim; start >= end fails with ErrInvalidWindow.
//
// An absent start with a present end is treated as both absent, matching
// the interval-based default.
func Resolve(start, end time.Time, intervalDays int) (Window, error) {
	return resolveAt(time.Now(), start, end, intervalDays)
}

// resolveAt is Resolve with an injected current time for deterministic tests.
func resolveAt(now, start, end time.Time, intervalDays int) (Window, error) {
	interval := time.Duration(intervalDays) * 24 * time.Hour

	switch {
	case start.IsZero():
		return Window{Start: now, End: now.Add(interval)}, nil
	case end.IsZero():
		return Window{Start: start, End: start.Add(interval)}, nil
	case !start.Before(end):
		return Window{}, fmt.Errorf("%w: start=%s end=%s",
			ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	default:
		return Window{Start: start, End: end}, nil
	}
}

// Params renders the window as start_date/end_date query values for
// time-scoped GET collections.
func (w Window) Params() url.Values {
	return url.Values{
		"start_date": []string{w.Start.Format(time.RFC3339)},
		"end_date":   []string{w.End.Format(time.RFC3339)},
	}
}
