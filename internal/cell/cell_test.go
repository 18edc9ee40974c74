package cell

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbook/internal/collage"
	"calbook/internal/convert"
	"calbook/internal/layout"
	"calbook/internal/model"
	"calbook/internal/scratch"
)

type mapOpener map[string]image.Image

func (m mapOpener) Open(path string) (image.Image, error) {
	img, ok := m[path]
	if !ok {
		return nil, errors.New("no such image")
	}
	return img, nil
}

func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	convert.Fill(img, img.Rect, c)
	return img
}

func ctxFor(tier layout.Tier) layout.Context {
	return layout.Context{Year: 2025, Month: time.March, Tier: tier, Geometry: layout.CalendarGeometry()}
}

func TestRenderNoEvents(t *testing.T) {
	arena := scratch.NewArena(nil)
	defer arena.Release()

	c := Renderer{}.Render(7, nil, ctxFor(layout.FiveWeeks), arena)
	assert.Equal(t, 7, c.Day)
	assert.Equal(t, DayFontSize, c.DayFontSize)
	assert.Empty(t, c.Name)
	assert.Nil(t, c.Image)
	assert.Empty(t, c.Placeholder)
	assert.Equal(t, 0, arena.Live())
}

func TestRenderSingleEvent(t *testing.T) {
	arena := scratch.NewArena(nil)
	defer arena.Release()

	r := Renderer{Images: mapOpener{"a.jpg": solid(640, 400, color.NRGBA{R: 0xFF, A: 0xFF})}}
	ev := model.DayEvent{Month: 3, Day: 4, Name: "  Birthday ", Image: "a.jpg"}

	for _, tier := range []layout.Tier{layout.FourWeeks, layout.FiveWeeks, layout.SixWeeks} {
		c := r.Render(4, []model.DayEvent{ev}, ctxFor(tier), arena)
		require.NotNil(t, c.Image, "tier %v", tier)
		spec := ThumbSpecFor(tier)
		assert.LessOrEqual(t, c.Image.PixelWidth, spec.ProcessW)
		assert.LessOrEqual(t, c.Image.PixelHeight, spec.ProcessH)
		assert.Equal(t, spec.DisplayW, c.Image.DisplayW)
		assert.Equal(t, "img-2025-03-04", c.Image.Key)
		assert.Equal(t, "Birthday", c.Name)
		assert.Equal(t, 1, c.EventCount)

		_, err := jpeg.Decode(bytes.NewReader(c.Image.JPEG))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, arena.Live())
}

func TestRenderMissingImage(t *testing.T) {
	arena := scratch.NewArena(nil)
	defer arena.Release()

	var failed []string
	r := Renderer{
		Images:       mapOpener{},
		OnImageError: func(path string, _ error) { failed = append(failed, path) },
	}
	c := r.Render(4, []model.DayEvent{{Name: "Trip", Image: "gone.jpg"}}, ctxFor(layout.FiveWeeks), arena)
	assert.Nil(t, c.Image)
	assert.Equal(t, Placeholder, c.Placeholder)
	assert.Equal(t, "Trip", c.Name)
	assert.Equal(t, []string{"gone.jpg"}, failed)
}

func TestRenderEventWithoutImage(t *testing.T) {
	c := Renderer{}.Render(4, []model.DayEvent{{Name: "Call mom"}}, ctxFor(layout.FiveWeeks), scratch.NewArena(nil))
	assert.Nil(t, c.Image)
	assert.Empty(t, c.Placeholder)
	assert.Equal(t, "Call mom", c.Name)
}

func TestRenderMultipleEvents(t *testing.T) {
	arena := scratch.NewArena(nil)
	defer arena.Release()

	r := Renderer{
		Images: mapOpener{
			"a.jpg":      solid(320, 200, color.NRGBA{R: 0xFF, A: 0xFF}),
			"b-full.jpg": solid(320, 200, color.NRGBA{B: 0xFF, A: 0xFF}),
		},
		Layout: collage.SideBySide,
	}
	events := []model.DayEvent{
		{Name: "Alice", Image: "a.jpg", CreationOrder: 1},
		{Name: "Bob", Image: "b.jpg", FullImage: "b-full.jpg", CreationOrder: 2},
		{Name: "Carol", CreationOrder: 3},
	}
	c := r.Render(9, events, ctxFor(layout.FiveWeeks), arena)
	require.NotNil(t, c.Image)
	assert.Equal(t, "Alice & Bob & Carol", c.Name)
	assert.Equal(t, 3, c.EventCount)
	assert.Empty(t, c.Placeholder)

	img, err := jpeg.Decode(bytes.NewReader(c.Image.JPEG))
	require.NoError(t, err)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	// Left half red (Alice), right half blue (Bob), sampled below the label.
	lr, _, lb, _ := img.At(w/4, h*3/4).RGBA()
	rr, _, rb, _ := img.At(w*3/4, h*3/4).RGBA()
	assert.Greater(t, lr, lb)
	assert.Greater(t, rb, rr)
}

func TestRenderMultipleAllUnreadable(t *testing.T) {
	r := Renderer{Images: mapOpener{}}
	events := []model.DayEvent{
		{Name: "A", Image: "x.jpg"},
		{Name: "B", Image: "y.jpg"},
	}
	c := r.Render(2, events, ctxFor(layout.SixWeeks), scratch.NewArena(nil))
	assert.Nil(t, c.Image)
	assert.Equal(t, Placeholder, c.Placeholder)
	assert.Equal(t, "A & B", c.Name)
}

func TestNameFontSize(t *testing.T) {
	tests := []struct {
		name string
		text string
		tier layout.Tier
		want float64
	}{
		{"short", "Party", layout.FiveWeeks, 12},
		{"at budget", "123456789012345", layout.FiveWeeks, 12},
		{"just over", "1234567890123456", layout.FiveWeeks, 11},
		{"double", "123456789012345678901234567890", layout.FourWeeks, 10},
		{"long", "a very long event name that keeps going", layout.FiveWeeks, 9},
		{"short six weeks", "Party", layout.SixWeeks, 11},
		{"double six weeks", "123456789012345678901234567890", layout.SixWeeks, 9},
		{"long six weeks", "a very long event name that keeps going", layout.SixWeeks, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameFontSize(tt.text, tt.tier))
		})
	}
}

func TestNameFontSizeSixWeeksOneStepSmaller(t *testing.T) {
	for n := 1; n <= 60; n++ {
		name := string(bytes.Repeat([]byte("x"), n))
		five := NameFontSize(name, layout.FiveWeeks)
		assert.Equal(t, five-1, NameFontSize(name, layout.SixWeeks), "length %d", n)
	}
}

func TestNameFontSizeMonotone(t *testing.T) {
	prev := 100.0
	for n := 1; n <= 60; n++ {
		size := NameFontSize(string(bytes.Repeat([]byte("x"), n)), layout.FiveWeeks)
		assert.LessOrEqual(t, size, prev)
		prev = size
	}
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "A & C", JoinNames([]model.DayEvent{{Name: "A"}, {Name: " "}, {Name: "C"}}))
	assert.Equal(t, "", JoinNames(nil))
}

func TestFileOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 3, 2))))
	require.NoError(t, f.Close())

	img, err := FileOpener{}.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	_, err = FileOpener{}.Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
