package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

// Meta is the document information written into the PDF.
type Meta struct {
	Title   string
	Author  string
	Subject string
	Created time.Time
}

const creator = "calbook"

// lineSpacing is the wrapped-text line height as a multiple of font size.
const lineSpacing = 1.2

// WritePDF draws pages onto US Letter landscape pages and writes the PDF
// to w. Each image is registered once per document under its Thumb key.
func WritePDF(w io.Writer, pages []Page, meta Meta) error {
	pdf := fpdf.New("L", "in", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(creator, true)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Author != "" {
		pdf.SetAuthor(meta.Author, true)
	}
	if meta.Subject != "" {
		pdf.SetSubject(meta.Subject, true)
	}
	if !meta.Created.IsZero() {
		pdf.SetCreationDate(meta.Created)
		pdf.SetModificationDate(meta.Created)
	}
	pdf.SetCatalogSort(true)

	d := drawer{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		registered: make(map[string]bool),
	}
	for _, p := range pages {
		pdf.AddPage()
		for _, op := range p.Ops {
			d.draw(op)
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("render: page %q: %w", p.Title, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render: write pdf: %w", err)
	}
	return nil
}

// Bytes is WritePDF into memory.
func Bytes(pages []Page, meta Meta) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, pages, meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	registered map[string]bool
}

func (d *drawer) draw(op Op) {
	pdf := d.pdf
	switch op.Kind {
	case OpRect:
		style := "D"
		if op.Filled {
			style = "FD"
			pdf.SetFillColor(int(op.Fill), int(op.Fill), int(op.Fill))
		}
		pdf.SetDrawColor(int(op.Gray), int(op.Gray), int(op.Gray))
		pdf.SetLineWidth(0.01)
		pdf.Rect(op.X, op.Y, op.W, op.H, style)
	case OpLine:
		pdf.SetDrawColor(int(op.Gray), int(op.Gray), int(op.Gray))
		pdf.SetLineWidth(0.01)
		pdf.Line(op.X, op.Y, op.X+op.W, op.Y+op.H)
	case OpImage:
		d.image(op)
	case OpText:
		d.text(op)
	}
}

func (d *drawer) image(op Op) {
	if op.Image == nil || len(op.Image.JPEG) == 0 || op.W <= 0 || op.H <= 0 {
		return
	}
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	key := op.Image.Key
	if !d.registered[key] {
		d.pdf.RegisterImageOptionsReader(key, opts, bytes.NewReader(op.Image.JPEG))
		d.registered[key] = true
	}
	d.pdf.ImageOptions(key, op.X, op.Y, op.W, op.H, false, opts, 0, "")
}

func (d *drawer) text(op Op) {
	pdf := d.pdf
	pdf.SetFont(op.Font.Family, op.Font.Style, op.Font.Size)
	pdf.SetTextColor(int(op.Gray), int(op.Gray), int(op.Gray))

	if !op.Wrap {
		pdf.SetXY(op.X, op.Y)
		pdf.CellFormat(op.W, op.H, d.tr(op.Text), "", 0, op.Align, false, 0, "")
		return
	}

	lineH := op.Font.Size / 72 * lineSpacing
	measure := func(s string) float64 { return pdf.GetStringWidth(d.tr(s)) }
	lines := Wrap(op.Text, op.W, measure)
	if n := int(op.H / lineH); len(lines) > n {
		lines = lines[:n]
	}
	align := "C"
	if op.Align != "" {
		align = op.Align[:1]
	}
	for i, line := range lines {
		pdf.SetXY(op.X, op.Y+float64(i)*lineH)
		pdf.CellFormat(op.W, lineH, d.tr(line), "", 0, align+"M", false, 0, "")
	}
}

// Wrap breaks text into lines no wider than width according to measure.
// Words longer than a line are broken between runes.
func Wrap(text string, width float64, measure func(string) float64) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(text) {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if measure(candidate) <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		for measure(word) > width {
			head := breakWord(word, width, measure)
			lines = append(lines, head)
			word = word[len(head):]
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// breakWord returns the longest rune prefix of word that fits width, and
// at least one rune.
func breakWord(word string, width float64, measure func(string) float64) string {
	end := 0
	for end < len(word) {
		_, size := utf8.DecodeRuneInString(word[end:])
		if end > 0 && measure(word[:end+size]) > width {
			break
		}
		end += size
	}
	return word[:end]
}
