package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end must be after start")

// Unit is the granularity used when counting billable periods in a window.
type Unit time.Duration

const (
	Hour Unit = Unit(time.Hour)
	Day  Unit = Unit(24 * time.Hour)
	Week Unit = Unit(7 * 24 * time.Hour)
)

// Window represents a half-open rental interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Window, error) {
	w := Window{Start: start.UTC(), End: end.UTC()}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate requires End strictly after Start; equal instants are rejected.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Periods counts started units within the window, so 25h is 2 days.
func (w Window) Periods(unit Unit) int64 {
	d := w.Duration()
	if d <= 0 || unit <= 0 {
		return 0
	}
	u := time.Duration(unit)
	n := int64(d / u)
	if d%u != 0 {
		n++
	}
	return n
}

func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(w.Start) || t.After(w.Start)) && t.Before(w.End)
}
