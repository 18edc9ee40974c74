// Package cell turns one calendar day and its events into renderable cell
// content: day number, optional thumbnail and a sized event name.
package cell

import (
	"fmt"
	"image"
	"strings"

	"calbook/internal/collage"
	"calbook/internal/convert"
	"calbook/internal/layout"
	"calbook/internal/model"
	"calbook/internal/scratch"
)

const (
	// DayFontSize is the bold day-number glyph size in points.
	DayFontSize = 16.0

	// NameBudget is the character count the largest name font fits.
	NameBudget = 15

	// Placeholder replaces a thumbnail whose image cannot be read.
	Placeholder = "Image unavailable"

	// NameSeparator joins the names of several events on one day.
	NameSeparator = " & "
)

// nameSteps is the monotone font table, largest first. The last entry is
// only reached by the longest names in six-week months.
var nameSteps = []float64{12, 11, 10, 9, 8}

// NameFontSize picks the event-name font size for name in tier. Longer
// names step down; six-week months start one step smaller.
func NameFontSize(name string, tier layout.Tier) float64 {
	n := float64(len([]rune(name)))
	step := 0
	switch {
	case n <= NameBudget:
		step = 0
	case n <= NameBudget*1.5:
		step = 1
	case n <= NameBudget*2:
		step = 2
	default:
		step = 3
	}
	if tier == layout.SixWeeks {
		step++
	}
	return nameSteps[min(step, len(nameSteps)-1)]
}

// ThumbSpec is the per-tier thumbnail size: pixels to process at and the
// display box in points.
type ThumbSpec struct {
	ProcessW, ProcessH int
	DisplayW, DisplayH float64
}

// ThumbSpecFor returns the thumbnail sizing for tier.
func ThumbSpecFor(t layout.Tier) ThumbSpec {
	switch t {
	case layout.FourWeeks:
		return ThumbSpec{ProcessW: 200, ProcessH: 150, DisplayW: 105, DisplayH: 78}
	case layout.SixWeeks:
		return ThumbSpec{ProcessW: 150, ProcessH: 112, DisplayW: 85, DisplayH: 60}
	default:
		return ThumbSpec{ProcessW: 180, ProcessH: 135, DisplayW: 100, DisplayH: 70}
	}
}

// Thumb is an encoded thumbnail ready to place on a page.
type Thumb struct {
	// Key uniquely names the image within one document.
	Key  string
	JPEG []byte

	PixelWidth, PixelHeight int
	// DisplayW/DisplayH is the box in points the image is fitted into.
	DisplayW, DisplayH float64
}

// Content is everything the page renderer needs for one day cell.
type Content struct {
	Day         int
	DayFontSize float64

	Name         string
	NameFontSize float64

	Image       *Thumb
	Placeholder string

	EventCount int
	Tier       layout.Tier
}

// ImageOpener loads event photos. Paths come straight from DayEvent.
type ImageOpener interface {
	Open(path string) (image.Image, error)
}

// FileOpener reads photos from the local filesystem.
type FileOpener struct{}

// Open decodes the photo at path.
func (FileOpener) Open(path string) (image.Image, error) {
	return convert.Open(path)
}

// Renderer is stateless apart from its immutable configuration.
type Renderer struct {
	Images ImageOpener
	Layout collage.Layout

	// OnImageError is called for every photo that cannot be used.
	OnImageError func(path string, err error)
}

// Render builds the content for day. events must already be in creation
// order. Encoded thumbnails live in buffers owned by arena.
func (r Renderer) Render(day int, events []model.DayEvent, ctx layout.Context, arena *scratch.Arena) Content {
	c := Content{
		Day:         day,
		DayFontSize: DayFontSize,
		EventCount:  len(events),
		Tier:        ctx.Tier,
	}
	if len(events) == 0 {
		return c
	}

	c.Name = JoinNames(events)
	if c.Name != "" {
		c.NameFontSize = NameFontSize(c.Name, ctx.Tier)
	}

	var canvas *image.NRGBA
	if len(events) == 1 {
		canvas = r.single(events[0])
	} else {
		canvas = r.multi(events, ctx)
	}
	if canvas == nil {
		if r.anyImage(events) {
			c.Placeholder = Placeholder
		}
		return c
	}

	thumb, err := r.encode(canvas, ctx, day, arena)
	if err != nil {
		r.imageError(fmt.Sprintf("%d-%02d-%02d", ctx.Year, ctx.Month, day), err)
		c.Placeholder = Placeholder
		return c
	}
	c.Image = thumb
	return c
}

// JoinNames joins the trimmed, non-empty event names with NameSeparator.
func JoinNames(events []model.DayEvent) string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		if n := strings.TrimSpace(ev.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, NameSeparator)
}

func (r Renderer) single(ev model.DayEvent) *image.NRGBA {
	path := ev.Image
	if path == "" {
		path = ev.FullImage
	}
	if path == "" {
		return nil
	}
	img, err := r.open(path)
	if err != nil {
		return nil
	}
	return convert.FitCanvas(img)
}

// multi composes the photos of several events. Events without a photo are
// skipped; unreadable photos leave a blank slot.
func (r Renderer) multi(events []model.DayEvent, ctx layout.Context) *image.NRGBA {
	paths := make([]string, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.FullImage != "":
			paths = append(paths, ev.FullImage)
		case ev.Image != "":
			paths = append(paths, ev.Image)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	if len(paths) > collage.MaxImages {
		paths = paths[:collage.MaxImages]
	}

	imgs := make([]image.Image, len(paths))
	loaded := 0
	for i, p := range paths {
		img, err := r.open(p)
		if err != nil {
			continue
		}
		imgs[i] = img
		loaded++
	}
	if loaded == 0 {
		return nil
	}
	return collage.Compose(imgs, len(events), ctx, r.Layout)
}

func (r Renderer) encode(canvas *image.NRGBA, ctx layout.Context, day int, arena *scratch.Arena) (*Thumb, error) {
	spec := ThumbSpecFor(ctx.Tier)
	small := convert.Thumbnail(canvas, spec.ProcessW, spec.ProcessH)

	buf := arena.Acquire()
	if err := convert.EncodeJPEG(buf, small); err != nil {
		return nil, err
	}
	return &Thumb{
		Key:         fmt.Sprintf("img-%04d-%02d-%02d", ctx.Year, int(ctx.Month), day),
		JPEG:        buf.Bytes(),
		PixelWidth:  small.Rect.Dx(),
		PixelHeight: small.Rect.Dy(),
		DisplayW:    spec.DisplayW,
		DisplayH:    spec.DisplayH,
	}, nil
}

func (r Renderer) open(path string) (image.Image, error) {
	opener := r.Images
	if opener == nil {
		opener = FileOpener{}
	}
	img, err := opener.Open(path)
	if err != nil {
		r.imageError(path, err)
		return nil, err
	}
	return img, nil
}

func (r Renderer) imageError(path string, err error) {
	if r.OnImageError != nil {
		r.OnImageError(path, err)
	}
}

func (r Renderer) anyImage(events []model.DayEvent) bool {
	for _, ev := range events {
		if ev.HasImage() {
			return true
		}
	}
	return false
}
