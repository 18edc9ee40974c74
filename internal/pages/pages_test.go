package pages

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbook/internal/model"
)

func labels(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func TestMerge(t *testing.T) {
	calendar := labels("C", 12)

	tests := []struct {
		name        string
		header      int
		januaryPage int
		wantLen     int
		wantFront   int
		wantBack    int
	}{
		// front: index 0; months use header 1..12; back matter starts at 13.
		{"fourteen pages jan 2", 14, 2, 26, 1, 1},
		{"exact fit", 12, 1, 24, 0, 0},
		{"short header", 5, 1, 17, 0, 0},
		{"january past end", 3, 10, 15, 3, 0},
		{"empty header", 0, 1, 12, 0, 0},
		{"long back matter", 20, 3, 32, 2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := labels("H", tt.header)
			got := Merge(header, tt.januaryPage, calendar)
			require.Len(t, got, tt.wantLen)

			assert.Equal(t, header[:tt.wantFront], got[:tt.wantFront])
			assert.Equal(t, header[len(header)-tt.wantBack:], got[len(got)-tt.wantBack:])

			// calendar pages keep their relative order
			var cal []string
			for _, p := range got {
				if p[0] == 'C' {
					cal = append(cal, p)
				}
			}
			assert.Equal(t, calendar, cal)
		})
	}
}

func TestMergeInterleave(t *testing.T) {
	header := labels("H", 14)
	got := Merge(header, 2, labels("C", 12))

	want := []string{"H1"}
	for m := 1; m <= 12; m++ {
		want = append(want, fmt.Sprintf("H%d", m+1), fmt.Sprintf("C%d", m))
	}
	want = append(want, "H14")
	assert.Equal(t, want, got)
}

func TestMergeShortHeaderSkipsMissing(t *testing.T) {
	got := Merge(labels("H", 3), 2, labels("C", 12))
	assert.Equal(t, []string{"H1", "H2", "C1", "H3", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9", "C10", "C11", "C12"}, got)
}

func TestHeaderIndex(t *testing.T) {
	assert.Equal(t, 1, HeaderIndex(2, 1, 14))
	assert.Equal(t, 12, HeaderIndex(2, 12, 14))
	assert.Equal(t, 0, HeaderIndex(2, 3, 3))
	assert.Equal(t, 1, HeaderIndex(1, 12, 5))
	assert.Equal(t, -1, HeaderIndex(1, 1, 0))
}

func pdfWithPages(t *testing.T, n int, prefix string) []byte {
	t.Helper()
	pdf := fpdf.New("L", "in", "Letter", "")
	pdf.SetFont("Helvetica", "", 24)
	for i := 0; i < n; i++ {
		pdf.AddPage()
		pdf.Text(1, 1, fmt.Sprintf("%s %d", prefix, i+1))
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestCount(t *testing.T) {
	n, err := Count(pdfWithPages(t, 3, "page"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Count([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestSplice(t *testing.T) {
	header := pdfWithPages(t, 14, "header")
	calendar := pdfWithPages(t, 12, "month")
	titles := labels("Month ", 12)

	out, refs, err := Splice(header, calendar, 2, titles)
	require.NoError(t, err)

	n, err := Count(out)
	require.NoError(t, err)
	assert.Equal(t, 26, n)
	require.Len(t, refs, 26)

	assert.Equal(t, model.PageRef{Origin: model.OriginHeader, Index: 0}, refs[0])
	assert.Equal(t, model.PageRef{Origin: model.OriginHeader, Index: 1}, refs[1])
	assert.Equal(t, model.PageRef{Origin: model.OriginCalendar, Index: 0, Title: "Month 1"}, refs[2])
	assert.Equal(t, model.PageRef{Origin: model.OriginCalendar, Index: 11, Title: "Month 12"}, refs[24])
	assert.Equal(t, model.PageRef{Origin: model.OriginHeader, Index: 13}, refs[25])
}

func TestSpliceMalformedHeader(t *testing.T) {
	calendar := pdfWithPages(t, 12, "month")

	_, _, err := Splice([]byte("garbage"), calendar, 1, nil)
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = Splice(pdfWithPages(t, 2, "header"), calendar, 0, nil)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}
