// Package schedule decides on which calendar days a chore is active.
//
// A chore carries a set of weekdays ("MO,WE,FR"). An empty set means the
// chore is active every day; chores created before active days existed
// have no set and keep that behavior. The chore's frequency label never
// gates activity.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Days is a set of active weekdays. The zero value (empty set) means
// every day.
type Days map[time.Weekday]struct{}

// ParseDays parses a comma-separated weekday list like "MO,WE,FR".
// An empty string parses to the empty set.
func ParseDays(s string) (Days, error) {
	d := Days{}
	s = strings.TrimSpace(s)
	if s == "" {
		return d, nil
	}
	for _, part := range strings.Split(s, ",") {
		wd, ok := dayNames[strings.ToUpper(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown day: %q", part)
		}
		d[wd] = struct{}{}
	}
	return d, nil
}

// String serializes the set back to a comma-separated list in week order,
// Sunday first.
func (d Days) String() string {
	if len(d) == 0 {
		return ""
	}
	var days []int
	for wd := range d {
		days = append(days, int(wd))
	}
	sort.Ints(days)

	var parts []string
	for _, wd := range days {
		parts = append(parts, dayAbbrev[time.Weekday(wd)])
	}
	return strings.Join(parts, ",")
}

// IsActiveOn reports whether a chore with this day set is active on the
// given date. An empty set is active every day.
func (d Days) IsActiveOn(date time.Time) bool {
	if len(d) == 0 {
		return true
	}
	_, ok := d[date.Weekday()]
	return ok
}

// Describe returns a human-readable description of the set.
func (d Days) Describe() string {
	if len(d) == 0 {
		return "Every day"
	}
	var days []int
	for wd := range d {
		days = append(days, int(wd))
	}
	sort.Ints(days)

	var names []string
	for _, wd := range days {
		names = append(names, time.Weekday(wd).String()[:3])
	}
	return "On " + strings.Join(names, ", ")
}
