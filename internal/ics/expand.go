package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calbook/internal/log"
	"calbook/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Year is the calendar year whose occurrences are produced.
	Year int
	// Location is where timed events are placed on a calendar day. Nil
	// uses time.Local. All-day events keep their written date.
	Location *time.Location
	// MaxOccurrencesPerEvent caps a single event's expansion. Zero uses
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandYear turns parsed events into one DayEvent per occurrence day in
// cfg.Year. It handles one-off events, RRULE recurrence, EXDATE removal
// and RECURRENCE-ID overrides.
//
// CreationOrder is the rank of the base event after a stable sort by
// CREATED, so ties keep their input (file) order; events without CREATED
// rank after those with one. The result is sorted by month, day and creation
// order.
func ExpandYear(events []ParsedEvent, cfg ExpandConfig) []model.DayEvent {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	var base []ParsedEvent
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		base = append(base, ev)
	}
	sortByCreation(base)

	out := make([]model.DayEvent, 0, len(base))
	for order, ev := range base {
		days, truncated := expandEvent(ev, overrides[ev.UID], cfg)
		if truncated {
			appLog.Error("expand: occurrences truncated",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		for _, occ := range days {
			out = append(out, model.DayEvent{
				Month:         int(occ.date.Month()),
				Day:           occ.date.Day(),
				Name:          occ.ev.Summary,
				Image:         occ.ev.Image,
				FullImage:     occ.ev.FullImage,
				CreationOrder: order,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.CreationOrder < b.CreationOrder
	})
	return out
}

func sortByCreation(events []ParsedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Created.IsZero() != b.Created.IsZero() {
			return !a.Created.IsZero()
		}
		return a.Created.Before(b.Created)
	})
}

type occurrence struct {
	date time.Time
	ev   ParsedEvent
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]occurrence, bool) {
	starts := []time.Time{ev.Start}
	truncated := false
	if ev.RawRRule != "" {
		var err error
		starts, truncated, err = recurrences(ev, cfg)
		if err != nil {
			appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
			return nil, false
		}
	}

	excluded := make(map[string]bool, len(ev.ExDates))
	for _, ex := range ev.ExDates {
		excluded[dayKey(ex)] = true
	}

	var out []occurrence
	for _, start := range starts {
		day := calendarDay(ev, start, cfg.Location)
		if excluded[dayKey(day)] {
			continue
		}
		occ := occurrence{date: day, ev: ev}
		if o, ok := findOverride(overrides, day); ok {
			occ = occurrence{date: calendarDay(o, o.Start, cfg.Location), ev: o}
		}
		if occ.date.Year() != cfg.Year {
			continue
		}
		out = append(out, occ)
	}
	return out, truncated
}

// recurrences returns the RRULE starts that can land in cfg.Year. The
// window is padded by a day on each side so zone shifts are not lost.
func recurrences(ev ParsedEvent, cfg ExpandConfig) ([]time.Time, bool, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(ev.Start)

	loc := ev.Start.Location()
	from := time.Date(cfg.Year, time.January, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	to := time.Date(cfg.Year+1, time.January, 1, 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	starts := r.Between(from, to, true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		return starts[:cfg.MaxOccurrencesPerEvent], true, nil
	}
	return starts, false, nil
}

// calendarDay is the day an occurrence is shown on, as a UTC midnight.
func calendarDay(ev ParsedEvent, start time.Time, loc *time.Location) time.Time {
	if !ev.AllDay {
		start = start.In(loc)
	}
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

func findOverride(overrides []ParsedEvent, day time.Time) (ParsedEvent, bool) {
	key := dayKey(day)
	for _, o := range overrides {
		if dayKey(*o.Recurrence) == key {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
