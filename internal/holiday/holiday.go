// Package holiday resolves named holidays to concrete dates for a year.
//
// Resolution never fails loudly: a holiday that cannot be placed in a given
// year (for example an n-th weekday that does not exist) resolves to
// (time.Time{}, false) and callers simply omit it.
package holiday

import (
	"fmt"
	"time"

	"calbook/internal/model"
)

// Kind is the closed set of supported holidays.
type Kind string

const (
	NewYears        Kind = "new_years"
	Easter          Kind = "easter"
	MothersDay      Kind = "mothers_day"
	FathersDay      Kind = "fathers_day"
	MemorialDay     Kind = "memorial_day"
	IndependenceDay Kind = "independence_day"
	LaborDay        Kind = "labor_day"
	Thanksgiving    Kind = "thanksgiving"
	Christmas       Kind = "christmas"
)

// Weekday numbering used by the nth/last helpers: 0=Monday .. 6=Sunday.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var displayNames = map[Kind]string{
	NewYears:        "New Year's Day",
	Easter:          "Easter",
	MothersDay:      "Mother's Day",
	FathersDay:      "Father's Day",
	MemorialDay:     "Memorial Day",
	IndependenceDay: "Independence Day",
	LaborDay:        "Labor Day",
	Thanksgiving:    "Thanksgiving",
	Christmas:       "Christmas",
}

// Kinds returns all holidays in display order.
func Kinds() []Kind {
	return []Kind{
		NewYears, Easter, MothersDay, FathersDay, MemorialDay,
		IndependenceDay, LaborDay, Thanksgiving, Christmas,
	}
}

// ParseKind validates a holiday identifier.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := displayNames[k]; !ok {
		return "", fmt.Errorf("holiday: unknown kind %q", s)
	}
	return k, nil
}

// DisplayName returns the human readable holiday name.
func (k Kind) DisplayName() string {
	if n, ok := displayNames[k]; ok {
		return n
	}
	return string(k)
}

// Resolve returns the date of kind in year, or false if it has none.
func Resolve(kind Kind, year int) (time.Time, bool) {
	switch kind {
	case NewYears:
		return date(year, 1, 1), true
	case IndependenceDay:
		return date(year, 7, 4), true
	case Christmas:
		return date(year, 12, 25), true
	case MemorialDay:
		return LastWeekday(year, 5, Monday)
	case LaborDay:
		return NthWeekday(year, 9, Monday, 1)
	case Thanksgiving:
		return NthWeekday(year, 11, Thursday, 4)
	case MothersDay:
		return NthWeekday(year, 5, Sunday, 2)
	case FathersDay:
		return NthWeekday(year, 6, Sunday, 3)
	case Easter:
		return EasterSunday(year), true
	default:
		return time.Time{}, false
	}
}

// NthWeekday finds the n-th occurrence of weekday (0=Mon..6=Sun) in month.
// If that occurrence falls outside the month the result is false.
func NthWeekday(year, month, weekday, n int) (time.Time, bool) {
	if month < 1 || month > 12 || weekday < Monday || weekday > Sunday || n < 1 {
		return time.Time{}, false
	}
	first := date(year, month, 1)
	ahead := weekday - isoWeekday(first)
	if ahead < 0 {
		ahead += 7
	}
	target := first.AddDate(0, 0, ahead+(n-1)*7)
	if int(target.Month()) != month || target.Year() != year {
		return time.Time{}, false
	}
	return target, true
}

// LastWeekday walks back from the last day of month to the nearest weekday.
func LastWeekday(year, month, weekday int) (time.Time, bool) {
	if month < 1 || month > 12 || weekday < Monday || weekday > Sunday {
		return time.Time{}, false
	}
	last := date(year, month+1, 0)
	back := (isoWeekday(last) - weekday + 7) % 7
	return last.AddDate(0, 0, -back), true
}

// EasterSunday computes Easter with the anonymous Gregorian computus.
// Intermediate terms are non-negative for positive years so Go's truncating
// division matches floor division there; floorDiv/floorMod keep the result
// exact for any year.
func EasterSunday(year int) time.Time {
	a := floorMod(year, 19)
	b := floorDiv(year, 100)
	c := floorMod(year, 100)
	d := floorDiv(b, 4)
	e := floorMod(b, 4)
	f := floorDiv(b+8, 25)
	g := floorDiv(b-f+1, 3)
	h := floorMod(19*a+b-d-g+15, 30)
	i := floorDiv(c, 4)
	k := floorMod(c, 4)
	l := floorMod(32+2*e+2*i-h-k, 7)
	m := floorDiv(a+11*h+22*l, 451)
	month := floorDiv(h+l-7*m+114, 31)
	day := floorMod(h+l-7*m+114, 31) + 1
	return date(year, month, day)
}

// Selection is a holiday chosen for a calendar, with an optional image.
type Selection struct {
	Kind  Kind
	Image string
}

// Events turns holiday selections into day events for year. Holidays that
// do not resolve are skipped. Creation order starts at firstOrder and
// follows the selection order.
func Events(year int, selections []Selection, firstOrder int) []model.DayEvent {
	out := make([]model.DayEvent, 0, len(selections))
	order := firstOrder
	for _, sel := range selections {
		d, ok := Resolve(sel.Kind, year)
		if !ok {
			continue
		}
		out = append(out, model.DayEvent{
			Month:         int(d.Month()),
			Day:           d.Day(),
			Name:          sel.Kind.DisplayName(),
			Image:         sel.Image,
			CreationOrder: order,
		})
		order++
	}
	return out
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// isoWeekday converts time.Weekday (Sunday=0) to 0=Monday..6=Sunday.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
