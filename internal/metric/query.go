package metric

import "time"

// Order sets the timestamp ordering of a query result.
type Order int

const (
	Ascending Order = iota
	Descending
)

// WindowField names the time column a Filter window applies to.
type WindowField string

const (
	WindowTimestamp WindowField = "timestamp"
	// WindowStartTime windows sleep sessions on their start time.
	WindowStartTime WindowField = "start_time"
)

// Filter selects one user's readings of a single kind. Start is inclusive,
// End exclusive; a zero bound is open. A zero Limit means no limit.
type Filter struct {
	UserID   string
	Kind     Kind
	Start    time.Time
	End      time.Time
	Activity ActivityLevel
	WindowOn WindowField
	Order    Order
	Limit    int
}

// Since is shorthand for an ascending query over [start, now).
func Since(userID string, kind Kind, start time.Time) Filter {
	return Filter{UserID: userID, Kind: kind, Start: start}
}

// Contains reports whether t falls inside the filter window.
func (f Filter) Contains(t time.Time) bool {
	if !f.Start.IsZero() && t.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !t.Before(f.End) {
		return false
	}
	return true
}

// WindowTime returns the time the filter window is evaluated against.
func (f Filter) WindowTime(r Reading) time.Time {
	if f.WindowOn == WindowStartTime {
		if s, ok := r.(*SleepDuration); ok {
			return s.StartTime
		}
	}
	return r.Header().Timestamp
}

// Matches reports whether r satisfies every condition of f except Limit.
func (f Filter) Matches(r Reading) bool {
	if r.Kind() != f.Kind || r.Header().UserID != f.UserID {
		return false
	}
	if f.Activity != "" {
		hr, ok := r.(*HeartRate)
		if !ok || hr.ActivityLevel != f.Activity {
			return false
		}
	}
	return f.Contains(f.WindowTime(r))
}
