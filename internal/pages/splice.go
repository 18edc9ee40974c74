package pages

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"calbook/internal/model"
)

// ErrMalformedHeader is returned when the header document cannot be read
// as a PDF or its January page index is unusable.
var ErrMalformedHeader = errors.New("pages: malformed header document")

var disableConfigDir sync.Once

// config returns a relaxed pdfcpu configuration that never touches the
// user's pdfcpu config directory.
func config() *pdfmodel.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// Count returns the number of pages in pdf.
func Count(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), config())
	if err != nil {
		return 0, fmt.Errorf("pages: count: %w", err)
	}
	return n, nil
}

// Splice merges the calendar PDF into the header PDF following Merge and
// returns the spliced document with a description of every output page.
// Calendar page titles are taken from titles when provided.
func Splice(header, calendar []byte, januaryPage int, titles []string) ([]byte, []model.PageRef, error) {
	if januaryPage < 1 {
		return nil, nil, fmt.Errorf("%w: january page %d", ErrMalformedHeader, januaryPage)
	}
	headerCount, err := Count(header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	calendarCount, err := Count(calendar)
	if err != nil {
		return nil, nil, err
	}

	// Page numbers in the concatenation header ++ calendar.
	headerNums := make([]int, headerCount)
	for i := range headerNums {
		headerNums[i] = i + 1
	}
	calendarNums := make([]int, calendarCount)
	for i := range calendarNums {
		calendarNums[i] = headerCount + i + 1
	}
	order := Merge(headerNums, januaryPage, calendarNums)

	var joined bytes.Buffer
	rsc := []io.ReadSeeker{bytes.NewReader(header), bytes.NewReader(calendar)}
	if err := api.MergeRaw(rsc, &joined, false, config()); err != nil {
		return nil, nil, fmt.Errorf("pages: join documents: %w", err)
	}

	selected := make([]string, len(order))
	refs := make([]model.PageRef, len(order))
	for i, n := range order {
		selected[i] = strconv.Itoa(n)
		if n <= headerCount {
			refs[i] = model.PageRef{Origin: model.OriginHeader, Index: n - 1}
			continue
		}
		idx := n - headerCount - 1
		refs[i] = model.PageRef{Origin: model.OriginCalendar, Index: idx}
		if idx < len(titles) {
			refs[i].Title = titles[idx]
		}
	}

	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(joined.Bytes()), &out, selected, config()); err != nil {
		return nil, nil, fmt.Errorf("pages: reorder pages: %w", err)
	}
	return out.Bytes(), refs, nil
}
