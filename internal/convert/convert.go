// Package convert prepares photos for print: decoding, flattening to opaque
// RGB, fitting onto the 320x200 logical canvas and scaling thumbnails.
package convert

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Logical canvas every event photo is normalised to.
const (
	CanvasWidth  = 320
	CanvasHeight = 200

	// aspectTolerance decides between an exact resize and an
	// aspect-preserving fit when normalising onto the canvas.
	aspectTolerance = 0.1

	JPEGQuality = 85
)

// Background is the fill used for letterboxing and blank regions.
var Background = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Decode reads any registered image format (JPEG, PNG, GIF, BMP, WebP).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("convert: decode: %w", err)
	}
	return img, nil
}

// Open decodes the image stored at path.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("convert: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// NormalizeRGB converts img to an opaque NRGBA, compositing any
// transparency onto Background.
func NormalizeRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	// Walk Pix directly rather than calling At/Set per pixel.
	for y := 0; y < out.Rect.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+out.Rect.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			a := uint32(row[i+3])
			if a == 0xFF {
				continue
			}
			row[i+0] = blend(row[i+0], Background.R, a)
			row[i+1] = blend(row[i+1], Background.G, a)
			row[i+2] = blend(row[i+2], Background.B, a)
			row[i+3] = 0xFF
		}
	}
	return out
}

func blend(c, bg uint8, a uint32) uint8 {
	return uint8((uint32(c)*a + uint32(bg)*(0xFF-a) + 0x7F) / 0xFF)
}

// FitCanvas places img on the 320x200 canvas. Photos already close to the
// canvas aspect ratio are resized to fill it exactly; others are scaled
// down to fit (never up) and centred on Background.
func FitCanvas(img image.Image) *image.NRGBA {
	src := NormalizeRGB(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	canvas := blank(CanvasWidth, CanvasHeight)
	if w == 0 || h == 0 {
		return canvas
	}
	if w == CanvasWidth && h == CanvasHeight {
		return src
	}

	target := float64(CanvasWidth) / float64(CanvasHeight)
	if math.Abs(float64(w)/float64(h)-target) < aspectTolerance {
		draw.CatmullRom.Scale(canvas, canvas.Rect, src, src.Rect, draw.Src, nil)
		return canvas
	}

	ratio := math.Min(float64(CanvasWidth)/float64(w), float64(CanvasHeight)/float64(h))
	if ratio > 1 {
		ratio = 1
	}
	nw := max(1, int(float64(w)*ratio))
	nh := max(1, int(float64(h)*ratio))
	x0 := (CanvasWidth - nw) / 2
	y0 := (CanvasHeight - nh) / 2
	draw.CatmullRom.Scale(canvas, image.Rect(x0, y0, x0+nw, y0+nh), src, src.Rect, draw.Src, nil)
	return canvas
}

// Thumbnail scales img down to fit within maxW x maxH, preserving aspect
// ratio. Images already inside the box are returned at their own size.
func Thumbnail(img image.Image, maxW, maxH int) *image.NRGBA {
	src := NormalizeRGB(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 || (w <= maxW && h <= maxH) {
		return src
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*ratio)))
	nh := max(1, int(math.Round(float64(h)*ratio)))
	out := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(out, out.Rect, src, src.Rect, draw.Src, nil)
	return out
}

// Cover scales src to cover r entirely and centre-crops the overflow.
func Cover(dst draw.Image, r image.Rectangle, src image.Image) {
	sb := src.Bounds()
	if sb.Empty() || r.Empty() {
		return
	}
	scale := math.Max(float64(r.Dx())/float64(sb.Dx()), float64(r.Dy())/float64(sb.Dy()))
	cw := int(math.Round(float64(r.Dx()) / scale))
	ch := int(math.Round(float64(r.Dy()) / scale))
	cw = min(max(cw, 1), sb.Dx())
	ch = min(max(ch, 1), sb.Dy())
	x0 := sb.Min.X + (sb.Dx()-cw)/2
	y0 := sb.Min.Y + (sb.Dy()-ch)/2
	draw.CatmullRom.Scale(dst, r, src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
}

// Fill paints r with c.
func Fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// EncodeJPEG writes img as a JPEG at JPEGQuality.
func EncodeJPEG(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return fmt.Errorf("convert: encode jpeg: %w", err)
	}
	return nil
}

func blank(w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	Fill(out, out.Rect, Background)
	return out
}
