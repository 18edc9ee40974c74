// Package layout lays out one month as a week-row grid that fills a fixed
// landscape page. Weeks start on Sunday.
package layout

import (
	"fmt"
	"sort"
	"time"

	"calbook/internal/model"
)

// Tier is the number of week rows a month needs: 4, 5 or 6.
type Tier int

const (
	FourWeeks Tier = 4
	FiveWeeks Tier = 5
	SixWeeks  Tier = 6
)

// RowHeight returns the row height in inches for the tier. The discrete
// table keeps header + rows close to the same total height.
func (t Tier) RowHeight() float64 {
	switch t {
	case FourWeeks:
		return 1.65
	case SixWeeks:
		return 1.10
	default:
		return 1.30
	}
}

func (t Tier) String() string {
	return fmt.Sprintf("%d-week", int(t))
}

// WeekdayLabels are the header labels, Sunday first.
var WeekdayLabels = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// Context is the explicit layout state threaded from the grid engine into
// cell and collage rendering.
type Context struct {
	Year     int
	Month    time.Month
	Tier     Tier
	Geometry Geometry
}

// Cell is one grid slot. Day 0 marks a placeholder outside the month.
type Cell struct {
	Day    int
	Events []model.DayEvent
}

// Empty reports whether the cell lies outside the month.
func (c Cell) Empty() bool {
	return c.Day == 0
}

// Month is the laid-out grid for one month.
type Month struct {
	Context      Context
	Weeks        int
	HeaderHeight float64
	RowHeight    float64
	Cells        [][7]Cell
}

// Title returns "<Month> <Year>".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Context.Month, m.Context.Year)
}

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// firstOffset is the Sunday-based column of the 1st of the month.
func firstOffset(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// WeekCount returns how many Sunday-first week rows the month spans.
func WeekCount(year int, month time.Month) int {
	slots := firstOffset(year, month) + DaysIn(year, month)
	return (slots + 6) / 7
}

// Layout builds the grid for (year, month). Events for each day are copied
// in stable creation order. Days outside the month stay empty.
func Layout(year int, month time.Month, events model.EventsByDay, geom Geometry) Month {
	weeks := WeekCount(year, month)
	tier := Tier(weeks)

	out := Month{
		Context: Context{
			Year:     year,
			Month:    month,
			Tier:     tier,
			Geometry: geom,
		},
		Weeks:        weeks,
		HeaderHeight: HeaderHeight,
		Cells:        make([][7]Cell, weeks),
	}
	scale := geom.RowScale(tier)
	out.RowHeight = tier.RowHeight() * scale

	offset := firstOffset(year, month)
	days := DaysIn(year, month)
	for day := 1; day <= days; day++ {
		slot := offset + day - 1
		cell := Cell{Day: day}
		if evs := events[day]; len(evs) > 0 {
			cell.Events = sortedCopy(evs)
		}
		out.Cells[slot/7][slot%7] = cell
	}
	return out
}

// GridHeight is header plus all week rows.
func (m Month) GridHeight() float64 {
	return m.HeaderHeight + float64(m.Weeks)*m.RowHeight
}

func sortedCopy(evs []model.DayEvent) []model.DayEvent {
	out := make([]model.DayEvent, len(evs))
	copy(out, evs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreationOrder < out[j].CreationOrder
	})
	return out
}
