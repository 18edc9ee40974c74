// Package collage merges 2-4 event photos into one canvas the size of a
// single event thumbnail.
package collage

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"calbook/internal/convert"
	"calbook/internal/layout"
)

// Layout selects the geometric template for two images. Three images always
// use one wide top slot over two bottom quarters, four or more use a grid.
type Layout string

const (
	Auto       Layout = "auto"
	SideBySide Layout = "side_by_side"
	TopBottom  Layout = "top_bottom"
	Grid       Layout = "grid"
)

// MaxImages is the number of slots a collage can fill.
const MaxImages = 4

// ParseLayout validates a layout name. Empty means Auto.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "":
		return Auto, nil
	case Auto, SideBySide, TopBottom, Grid:
		return Layout(s), nil
	default:
		return "", fmt.Errorf("collage: unknown layout %q", s)
	}
}

// Label styling.
var (
	labelBackground = color.NRGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xD8}
	labelForeground = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	labelPadding    = 3
	labelInset      = 4
)

// Regions returns the slot rectangles for n images on the canvas, in input
// order. n above MaxImages is capped.
func Regions(n int, tmpl Layout) []image.Rectangle {
	w, h := convert.CanvasWidth, convert.CanvasHeight
	halfW, halfH := w/2, h/2
	quarters := []image.Rectangle{
		image.Rect(0, 0, halfW, halfH),
		image.Rect(halfW, 0, w, halfH),
		image.Rect(0, halfH, halfW, h),
		image.Rect(halfW, halfH, w, h),
	}

	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []image.Rectangle{image.Rect(0, 0, w, h)}
	case n == 2:
		switch tmpl {
		case TopBottom:
			return []image.Rectangle{
				image.Rect(0, 0, w, halfH),
				image.Rect(0, halfH, w, h),
			}
		case Grid:
			return quarters[:2]
		default:
			return []image.Rectangle{
				image.Rect(0, 0, halfW, h),
				image.Rect(halfW, 0, w, h),
			}
		}
	case n == 3:
		return []image.Rectangle{
			image.Rect(0, 0, w, halfH),
			quarters[2],
			quarters[3],
		}
	default:
		// Row-major: index%2 is the column, index/2 the row.
		out := make([]image.Rectangle, MaxImages)
		for i := range out {
			out[i] = quarters[(i/2)*2+i%2]
		}
		return out
	}
}

// Compose draws images into their slots and overlays a "<N> Events" label
// sized for ctx.Tier. A nil image leaves its slot filled with the background
// colour. Images beyond MaxImages are ignored. eventCount is the number of
// source events, which may exceed the number of images.
func Compose(images []image.Image, eventCount int, ctx layout.Context, tmpl Layout) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, convert.CanvasWidth, convert.CanvasHeight))
	convert.Fill(canvas, canvas.Rect, convert.Background)

	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	for i, r := range Regions(len(images), tmpl) {
		if images[i] == nil {
			continue
		}
		convert.Cover(canvas, r, convert.NormalizeRGB(images[i]))
	}

	drawLabel(canvas, fmt.Sprintf("%d Events", eventCount), LabelScale(ctx.Tier))
	return canvas
}

// LabelScale is the integer magnification of the count label. Six-week
// thumbnails shrink the canvas the most, so their label is drawn double size.
func LabelScale(t layout.Tier) int {
	if t == layout.SixWeeks {
		return 2
	}
	return 1
}

// LabelBounds returns where the count label is drawn for text at scale.
func LabelBounds(text string, scale int) image.Rectangle {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	tw := font.MeasureString(face, text).Ceil() * scale
	th := face.Metrics().Height.Ceil() * scale
	pad := labelPadding * scale
	maxX := convert.CanvasWidth - labelInset
	minX := maxX - tw - 2*pad
	minY := labelInset
	return image.Rect(minX, minY, maxX, minY+th+2*pad)
}

// drawLabel renders text at 1x into a scratch image and scales it up with
// nearest neighbour so the bitmap glyphs stay sharp.
func drawLabel(dst *image.NRGBA, text string, scale int) {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	box := LabelBounds(text, scale)
	fillOver(dst, box, labelBackground)

	tw := font.MeasureString(face, text).Ceil()
	th := face.Metrics().Height.Ceil()
	glyphs := image.NewNRGBA(image.Rect(0, 0, tw, th))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(labelForeground),
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(text)

	pad := labelPadding * scale
	origin := image.Pt(box.Min.X+pad, box.Min.Y+pad)
	target := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(tw*scale, th*scale))}
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

// fillOver alpha-blends c over r so the photo stays faintly visible.
func fillOver(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Rect)
	a := uint32(c.A)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Pix[off+0] = mix(dst.Pix[off+0], c.R, a)
			dst.Pix[off+1] = mix(dst.Pix[off+1], c.G, a)
			dst.Pix[off+2] = mix(dst.Pix[off+2], c.B, a)
			dst.Pix[off+3] = 0xFF
			off += 4
		}
	}
}

func mix(under, over uint8, a uint32) uint8 {
	return uint8((uint32(over)*a + uint32(under)*(0xFF-a) + 0x7F) / 0xFF)
}
