// Package assemble builds a year's calendar document in one of three
// modes: calendar pages only, calendar pages interleaved with a header
// document, or per-month spreads with a header placeholder band.
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"calbook/internal/cell"
	"calbook/internal/layout"
	appLog "calbook/internal/log"
	"calbook/internal/metrics"
	"calbook/internal/model"
	"calbook/internal/pages"
	"calbook/internal/render"
	"calbook/internal/scratch"
)

var (
	// ErrNoHeader is returned when a mode needing a HeaderDocument gets none.
	ErrNoHeader = errors.New("assemble: no header available")
	// ErrUnknownGenerationType is returned for an unrecognised mode.
	ErrUnknownGenerationType = errors.New("assemble: unknown generation type")
)

// Request is the input of one generation call.
type Request struct {
	Year   int
	Type   model.GenerationType
	Events []model.DayEvent
	Header *model.HeaderDocument
}

// Assembler is safe for concurrent use as long as its fields are not
// modified after the first Generate call.
type Assembler struct {
	Renderer cell.Renderer
	// Parallel renders the twelve months concurrently.
	Parallel bool
	Metrics  *metrics.Metrics
	// Pool recycles scratch buffers across calls. Nil gets a private pool
	// per call.
	Pool *scratch.Pool
	// Now stamps the PDF creation date. Nil uses time.Now.
	Now func() time.Time

	// arenaHook observes each call's arena after release (tests).
	arenaHook func(*scratch.Arena)
}

// Filename returns the output file name for a document of genType.
func Filename(genType model.GenerationType, year int) string {
	switch genType {
	case model.WithHeaders:
		return fmt.Sprintf("calendar_%d_with_headers.pdf", year)
	case model.Combined:
		return fmt.Sprintf("calendar_%d_combined_spread.pdf", year)
	default:
		return fmt.Sprintf("calendar_%d_only.pdf", year)
	}
}

// Generate builds the document for req. On error no document is returned
// and every scratch buffer acquired during the call is released.
func (a *Assembler) Generate(req Request) (_ *model.GeneratedDocument, err error) {
	id := uuid.NewString()
	start := time.Now()
	appLog.Info("generation started", "generation_id", id, "type", string(req.Type), "year", req.Year, "events", len(req.Events))

	defer func() {
		elapsed := time.Since(start)
		a.Metrics.ObserveGeneration(string(req.Type), err, elapsed)
		if err != nil {
			appLog.Error("generation failed", err, "generation_id", id, "type", string(req.Type), "year", req.Year)
		}
	}()

	switch req.Type {
	case model.CalendarOnly, model.WithHeaders, model.Combined:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerationType, req.Type)
	}
	if req.Type.RequiresHeader() && (req.Header == nil || len(req.Header.PDF) == 0) {
		return nil, ErrNoHeader
	}
	if req.Type.RequiresHeader() && req.Header.JanuaryPage < 1 {
		return nil, fmt.Errorf("assemble: header %q: %w: january page %d", req.Header.Name, pages.ErrMalformedHeader, req.Header.JanuaryPage)
	}

	arena := scratch.NewArena(a.Pool)
	defer func() {
		arena.Release()
		if a.arenaHook != nil {
			a.arenaHook(arena)
		}
	}()

	var (
		pdf  []byte
		refs []model.PageRef
	)
	switch req.Type {
	case model.CalendarOnly:
		pdf, refs, err = a.calendarOnly(req, arena)
	case model.WithHeaders:
		pdf, refs, err = a.withHeaders(req, arena)
	case model.Combined:
		pdf, refs, err = a.combined(req, arena)
	}
	if err != nil {
		return nil, err
	}

	doc := &model.GeneratedDocument{
		ID:       id,
		Type:     req.Type,
		Year:     req.Year,
		Filename: Filename(req.Type, req.Year),
		PDF:      pdf,
		Pages:    refs,
	}
	a.countPages(refs)
	appLog.Info("generation finished",
		"generation_id", id,
		"type", string(req.Type),
		"year", req.Year,
		"pages", len(refs),
		"bytes", len(pdf),
		"scratch_peak", arena.Peak(),
		"duration", time.Since(start).String(),
	)
	return doc, nil
}

func (a *Assembler) calendarOnly(req Request, arena *scratch.Arena) ([]byte, []model.PageRef, error) {
	pgs := a.MonthPages(req.Year, req.Events, layout.CalendarGeometry(), nil, arena)
	buf, err := a.write(req.Year, pgs, arena)
	if err != nil {
		return nil, nil, err
	}
	return bytes.Clone(buf), calendarRefs(pgs), nil
}

func (a *Assembler) withHeaders(req Request, arena *scratch.Arena) ([]byte, []model.PageRef, error) {
	pgs := a.MonthPages(req.Year, req.Events, layout.CalendarGeometry(), nil, arena)
	cal, err := a.write(req.Year, pgs, arena)
	if err != nil {
		return nil, nil, err
	}
	titles := make([]string, len(pgs))
	for i, p := range pgs {
		titles[i] = p.Title
	}
	out, refs, err := pages.Splice(req.Header.PDF, cal, req.Header.JanuaryPage, titles)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: splice header %q: %w", req.Header.Name, err)
	}
	return out, refs, nil
}

func (a *Assembler) combined(req Request, arena *scratch.Arena) ([]byte, []model.PageRef, error) {
	count, err := pages.Count(req.Header.PDF)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: header %q: %w: %v", req.Header.Name, pages.ErrMalformedHeader, err)
	}
	bands := make([]string, 12)
	for i := range bands {
		bands[i] = BandText(req.Header, i+1, count)
	}
	pgs := a.MonthPages(req.Year, req.Events, layout.SpreadGeometry(), bands, arena)
	buf, err := a.write(req.Year, pgs, arena)
	if err != nil {
		return nil, nil, err
	}
	return bytes.Clone(buf), calendarRefs(pgs), nil
}

// BandText is the header placeholder shown above month (1-12) on a
// combined spread.
func BandText(h *model.HeaderDocument, month, headerPages int) string {
	name := h.Name
	if name == "" {
		name = "Header"
	}
	idx := pages.HeaderIndex(h.JanuaryPage, month, headerPages)
	if idx < 0 {
		return name
	}
	return fmt.Sprintf("%s - page %d of %d", name, idx+1, headerPages)
}

// MonthPages lays out and renders the twelve month pages of year. With
// bands set, each page is a spread carrying bands[month-1].
func (a *Assembler) MonthPages(year int, events []model.DayEvent, geom layout.Geometry, bands []string, arena *scratch.Arena) []render.Page {
	byMonth := model.GroupByMonth(events)
	renderer := a.renderer()
	out := make([]render.Page, 12)

	build := func(i int) {
		month := time.Month(i + 1)
		m := layout.Layout(year, month, byMonth[i+1], geom)
		contents := make(map[int]cell.Content)
		for _, week := range m.Cells {
			for _, c := range week {
				if c.Empty() {
					continue
				}
				contents[c.Day] = renderer.Render(c.Day, c.Events, m.Context, arena)
			}
		}
		if bands != nil {
			out[i] = render.SpreadPage(m, contents, bands[i])
			return
		}
		out[i] = render.MonthPage(m, contents)
	}

	if !a.Parallel {
		for i := range out {
			build(i)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range out {
		i := i
		g.Go(func() error {
			build(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// renderer wraps the configured image error hook with logging and metrics.
func (a *Assembler) renderer() cell.Renderer {
	r := a.Renderer
	next := r.OnImageError
	r.OnImageError = func(path string, err error) {
		a.Metrics.ImageFallback()
		appLog.Debug("image unavailable, using placeholder", "path", path, "err", err.Error())
		if next != nil {
			next(path, err)
		}
	}
	return r
}

func (a *Assembler) write(year int, pgs []render.Page, arena *scratch.Arena) ([]byte, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	buf := arena.Acquire()
	meta := render.Meta{
		Title:   fmt.Sprintf("Calendar %d", year),
		Subject: "Photo calendar",
		Created: now(),
	}
	if err := render.WritePDF(buf, pgs, meta); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *Assembler) countPages(refs []model.PageRef) {
	var cal, hdr int
	for _, r := range refs {
		if r.Origin == model.OriginHeader {
			hdr++
		} else {
			cal++
		}
	}
	a.Metrics.AddPages(string(model.OriginCalendar), cal)
	a.Metrics.AddPages(string(model.OriginHeader), hdr)
}

func calendarRefs(pgs []render.Page) []model.PageRef {
	refs := make([]model.PageRef, len(pgs))
	for i, p := range pgs {
		refs[i] = model.PageRef{Origin: model.OriginCalendar, Index: i, Title: p.Title}
	}
	return refs
}
