// Package render lays month grids out as a display list of positioned
// drawing operations and writes display lists as PDF.
//
// All coordinates are in inches from the top-left corner of an 11x8.5in
// landscape page. Font sizes are in points.
package render

import (
	"fmt"

	"calbook/internal/cell"
	"calbook/internal/layout"
)

// OpKind selects how an Op is drawn.
type OpKind int

const (
	OpText OpKind = iota
	OpImage
	OpLine
	OpRect
)

func (k OpKind) String() string {
	switch k {
	case OpText:
		return "text"
	case OpImage:
		return "image"
	case OpLine:
		return "line"
	case OpRect:
		return "rect"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Font names one of the PDF core fonts.
type Font struct {
	Family string // "Helvetica", "Times"
	Style  string // "", "B", "I", "BI"
	Size   float64
}

var (
	titleFont       = Font{Family: "Helvetica", Style: "B", Size: 22}
	weekdayFont     = Font{Family: "Times", Style: "B", Size: 10}
	dayFont         = Font{Family: "Times", Style: "B", Size: cell.DayFontSize}
	placeholderFont = Font{Family: "Helvetica", Style: "I", Size: 7}
	bandFont        = Font{Family: "Helvetica", Style: "", Size: 12}
)

// Op is one drawing operation.
//
// Text draws Text inside the X/Y/W/H box using Align (fpdf alignment,
// e.g. "LT", "CM"). With Wrap set, text is broken into lines of the box
// width and lines that do not fit the box height are dropped.
// Image draws Image into the box. Line runs from (X, Y) to (X+W, Y+H).
// Rect strokes the box, and also fills it with Fill when Filled is set.
type Op struct {
	Kind OpKind

	X, Y, W, H float64

	Text  string
	Font  Font
	Align string
	Wrap  bool

	Image *cell.Thumb

	// Gray levels, 0 black to 255 white.
	Gray   uint8
	Fill   uint8
	Filled bool
}

// Page is the display list for one page.
type Page struct {
	Title string
	Ops   []Op
}

// Texts returns the text operations of the page in drawing order.
func (p Page) Texts() []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op)
		}
	}
	return out
}

// Images returns the image operations of the page in drawing order.
func (p Page) Images() []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == OpImage {
			out = append(out, op)
		}
	}
	return out
}

// Cell padding and vertical budget, in inches.
const (
	cellPad      = 0.05
	dayBoxHeight = 0.28
	nameReserve  = 0.32
	gridLineGray = 120
	headerFill   = 225
)

// MonthPage builds the page for m. contents maps day numbers to the
// rendered cell content; days missing from contents show only the day
// number.
func MonthPage(m layout.Month, contents map[int]cell.Content) Page {
	b := builder{geom: m.Context.Geometry}
	b.title(m)
	b.grid(m, contents)
	return Page{Title: m.Title(), Ops: b.ops}
}

// SpreadPage builds a combined page: a header placeholder band carrying
// band text, stacked above the month grid.
func SpreadPage(m layout.Month, contents map[int]cell.Content, band string) Page {
	b := builder{geom: m.Context.Geometry}
	b.band(band)
	b.title(m)
	b.grid(m, contents)
	return Page{Title: m.Title(), Ops: b.ops}
}

type builder struct {
	geom layout.Geometry
	ops  []Op
}

func (b *builder) add(op Op) {
	b.ops = append(b.ops, op)
}

func (b *builder) band(text string) {
	g := b.geom
	x, y := g.GridLeft(), g.Margin
	w, h := g.GridWidth(), g.TopBand-0.05
	b.add(Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Gray: 160, Fill: 240, Filled: true})
	b.add(Op{Kind: OpText, X: x, Y: y, W: w, H: h, Text: text, Font: bandFont, Align: "CM", Gray: 60})
}

func (b *builder) title(m layout.Month) {
	g := b.geom
	b.add(Op{
		Kind:  OpText,
		X:     g.GridLeft(),
		Y:     g.TitleTop(),
		W:     g.GridWidth(),
		H:     layout.TitleHeight,
		Text:  m.Title(),
		Font:  titleFont,
		Align: "CM",
	})
}

func (b *builder) grid(m layout.Month, contents map[int]cell.Content) {
	g := b.geom
	left, top := g.GridLeft(), g.GridTop()
	cw := g.ColumnWidth

	for col, label := range layout.WeekdayLabels {
		x := left + float64(col)*cw
		b.add(Op{Kind: OpRect, X: x, Y: top, W: cw, H: m.HeaderHeight, Gray: gridLineGray, Fill: headerFill, Filled: true})
		b.add(Op{Kind: OpText, X: x, Y: top, W: cw, H: m.HeaderHeight, Text: label, Font: weekdayFont, Align: "CM"})
	}

	for row, week := range m.Cells {
		y := top + m.HeaderHeight + float64(row)*m.RowHeight
		for col, c := range week {
			x := left + float64(col)*cw
			b.add(Op{Kind: OpRect, X: x, Y: y, W: cw, H: m.RowHeight, Gray: gridLineGray})
			if c.Empty() {
				continue
			}
			content, ok := contents[c.Day]
			if !ok {
				content = cell.Content{Day: c.Day, DayFontSize: cell.DayFontSize, Tier: m.Context.Tier}
			}
			b.cell(x, y, cw, m.RowHeight, content)
		}
	}
}

// cell draws one day: the thumbnail (or placeholder) first so the day
// number overlays it, then the name below.
func (b *builder) cell(x, y, w, h float64, c cell.Content) {
	innerW := w - 2*cellPad
	nameTop := y + dayBoxHeight

	switch {
	case c.Image != nil:
		maxW := min(c.Image.DisplayW/layout.PointsPerInch, innerW)
		maxH := min(c.Image.DisplayH/layout.PointsPerInch, h-2*cellPad-nameReserve)
		iw, ih := fitBox(float64(c.Image.PixelWidth), float64(c.Image.PixelHeight), maxW, maxH)
		ix := x + (w-iw)/2
		iy := y + cellPad
		b.add(Op{Kind: OpImage, X: ix, Y: iy, W: iw, H: ih, Image: c.Image})
		nameTop = max(nameTop, iy+ih+0.02)
	case c.Placeholder != "":
		ph := min(0.4, h-2*cellPad-nameReserve-dayBoxHeight)
		px, py := x+cellPad, y+dayBoxHeight
		b.add(Op{Kind: OpRect, X: px, Y: py, W: innerW, H: ph, Gray: 180, Fill: 245, Filled: true})
		b.add(Op{Kind: OpText, X: px, Y: py, W: innerW, H: ph, Text: c.Placeholder, Font: placeholderFont, Align: "CM", Gray: 90})
		nameTop = py + ph + 0.02
	}

	font := dayFont
	if c.DayFontSize > 0 {
		font.Size = c.DayFontSize
	}
	b.add(Op{
		Kind:  OpText,
		X:     x + cellPad,
		Y:     y + cellPad,
		W:     0.4,
		H:     dayBoxHeight - cellPad,
		Text:  fmt.Sprintf("%d", c.Day),
		Font:  font,
		Align: "LT",
	})

	if c.Name == "" {
		return
	}
	nameH := y + h - cellPad - nameTop
	if nameH <= 0 {
		return
	}
	b.add(Op{
		Kind:  OpText,
		X:     x + cellPad,
		Y:     nameTop,
		W:     innerW,
		H:     nameH,
		Text:  c.Name,
		Font:  Font{Family: "Helvetica", Style: "I", Size: c.NameFontSize},
		Align: "CT",
		Wrap:  true,
	})
}

// fitBox scales (w, h) to fit inside (maxW, maxH), keeping aspect ratio.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	s := min(maxW/w, maxH/h)
	return w * s, h * s
}
