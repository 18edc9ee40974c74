package layout

import "math"

// Physical page constants, in inches. The page is US Letter landscape.
const (
	PageWidth  = 11.0
	PageHeight = 8.5

	CalendarMargin = 0.25
	SpreadMargin   = 0.5

	ColumnWidth  = 1.48
	HeaderHeight = 0.30

	// TitleHeight is the band above the grid holding "<Month> <Year>".
	TitleHeight = 0.55
	// SpreadBandHeight is the header placeholder band on combined pages.
	SpreadBandHeight = 0.55

	// PointsPerInch converts font sizes and display sizes.
	PointsPerInch = 72.0
)

// Geometry is an immutable description of where a month grid goes on a
// page. Construct once and share by value.
type Geometry struct {
	Margin      float64
	ColumnWidth float64
	// TopBand is the vertical space reserved above the grid title.
	TopBand float64
}

// CalendarGeometry is used by calendar_only and with_headers documents.
func CalendarGeometry() Geometry {
	return newGeometry(CalendarMargin, 0)
}

// SpreadGeometry is used by combined documents, where a header placeholder
// band sits above the month title.
func SpreadGeometry() Geometry {
	return newGeometry(SpreadMargin, SpreadBandHeight)
}

func newGeometry(margin, topBand float64) Geometry {
	printable := PageWidth - 2*margin
	return Geometry{
		Margin:      margin,
		ColumnWidth: math.Min(ColumnWidth, printable/7),
		TopBand:     topBand,
	}
}

// PrintableWidth is the page width inside the margins.
func (g Geometry) PrintableWidth() float64 {
	return PageWidth - 2*g.Margin
}

// PrintableHeight is the page height inside the margins.
func (g Geometry) PrintableHeight() float64 {
	return PageHeight - 2*g.Margin
}

// GridWidth is the width of the 7 columns.
func (g Geometry) GridWidth() float64 {
	return g.ColumnWidth * 7
}

// GridLeft is the x coordinate of the grid, centred horizontally.
func (g Geometry) GridLeft() float64 {
	return g.Margin + (g.PrintableWidth()-g.GridWidth())/2
}

// TitleTop is the y coordinate of the month title band.
func (g Geometry) TitleTop() float64 {
	return g.Margin + g.TopBand
}

// GridTop is the y coordinate of the weekday header row.
func (g Geometry) GridTop() float64 {
	return g.TitleTop() + TitleHeight
}

// RowScale shrinks rows uniformly when the grid would not fit below the
// title (only the combined spread needs it). It is 1 otherwise.
func (g Geometry) RowScale(t Tier) float64 {
	avail := PageHeight - g.Margin - g.GridTop() - HeaderHeight
	need := float64(t) * t.RowHeight()
	if need <= avail {
		return 1
	}
	return avail / need
}
