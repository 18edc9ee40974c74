// Package model holds the data exchanged between the event store, the
// assembler and its callers.
package model

import "fmt"

// DayEvent is a single dated photo-event as supplied by the external event
// store. CreationOrder is the tie-break for joining names and ordering
// collage slots within one day; it is passed through unchanged.
type DayEvent struct {
	Month int
	Day   int
	Name  string

	// Image is the path of the cropped display image, if any.
	Image string
	// FullImage is the path of the uncropped original, if any.
	FullImage string

	CreationOrder int
}

// HasImage reports whether the event carries any image reference.
func (e DayEvent) HasImage() bool {
	return e.Image != "" || e.FullImage != ""
}

// EventsByDay groups one month's events by day of month.
type EventsByDay map[int][]DayEvent

// GroupByMonth splits a year's events into per-month, per-day buckets,
// preserving the input order inside each day.
func GroupByMonth(events []DayEvent) map[int]EventsByDay {
	out := make(map[int]EventsByDay, 12)
	for _, ev := range events {
		byDay, ok := out[ev.Month]
		if !ok {
			byDay = make(EventsByDay)
			out[ev.Month] = byDay
		}
		byDay[ev.Day] = append(byDay[ev.Day], ev)
	}
	return out
}

// HeaderDocument is an externally supplied paginated document whose pages
// carry per-month artwork. JanuaryPage is 1-based.
type HeaderDocument struct {
	// PDF is the raw document.
	PDF []byte
	// JanuaryPage is the 1-based page holding the January header.
	JanuaryPage int
	// Name is used for logging only.
	Name string
}

// GenerationType selects how the DocumentAssembler builds its output.
type GenerationType string

const (
	CalendarOnly GenerationType = "calendar_only"
	WithHeaders  GenerationType = "with_headers"
	Combined     GenerationType = "combined"
)

// ParseGenerationType validates a generation type label.
func ParseGenerationType(s string) (GenerationType, error) {
	switch GenerationType(s) {
	case CalendarOnly, WithHeaders, Combined:
		return GenerationType(s), nil
	default:
		return "", fmt.Errorf("model: unknown generation type %q", s)
	}
}

// RequiresHeader reports whether the generation type needs a HeaderDocument.
func (t GenerationType) RequiresHeader() bool {
	return t == WithHeaders || t == Combined
}

// PageOrigin tells which document a page of the output came from.
type PageOrigin string

const (
	OriginCalendar PageOrigin = "calendar"
	OriginHeader   PageOrigin = "header"
)

// PageRef describes one page of a generated document. Index is 0-based
// within its origin document.
type PageRef struct {
	Origin PageOrigin
	Index  int
	Title  string
}

// GeneratedDocument is the sole output artifact of one generation call.
// Persistence policy is up to the caller.
type GeneratedDocument struct {
	ID       string
	Type     GenerationType
	Year     int
	Filename string

	PDF   []byte
	Pages []PageRef
}
