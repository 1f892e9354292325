package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// Consultation length bounds in minutes. Definitions outside this
	// range are rejected.
	MinGranularity = 15
	MaxGranularity = 120

	// DefaultGranularity applies when a definition does not specify one.
	DefaultGranularity = 30
)

// TimeOfDay is a minute offset from midnight, rendered as "HH:MM".
// Definitions use it for their half-open [Start, End) range.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24-hour clock). The whole input must
// match: trailing characters make the value invalid.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: expected HH:MM", s)
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// TimeOfDayFrom extracts the wall-clock minute of t.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// OnDate pins the time of day onto the given calendar date, preserving
// the date's location.
func (t TimeOfDay) OnDate(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("time of day must be a quoted HH:MM string")
	}
	parsed, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Definition is one recurring weekly availability rule for a provider.
type Definition struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	DayOfWeek   time.Weekday
	Start       TimeOfDay // inclusive
	End         TimeOfDay // exclusive
	Granularity int       // minutes between bookable instants
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overlaps reports whether two half-open ranges intersect. Touching
// ranges (a.End == b.Start) do not overlap.
func (d Definition) Overlaps(o Definition) bool {
	return d.Start < o.End && d.End > o.Start
}

// Instants expands the definition into its bookable times of day:
// Start, Start+g, Start+2g, ... strictly below End.
func (d Definition) Instants() []TimeOfDay {
	var out []TimeOfDay
	for t := d.Start; t < d.End; t += TimeOfDay(d.Granularity) {
		out = append(out, t)
	}
	return out
}
