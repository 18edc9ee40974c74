// Package pages splices generated calendar pages into an externally
// supplied header document.
package pages

// Merge interleaves twelve calendar pages with a header document whose
// January header sits at the 1-based januaryPage:
//
//  1. header pages before januaryPage, unchanged (front matter)
//  2. for each month: the month's header page if it exists, then the
//     month's calendar page
//  3. header pages from januaryPage+12 onward (back matter)
//
// Header indices outside the document are skipped, so a short header
// document degrades to fewer header pages rather than an error.
func Merge[P any](header []P, januaryPage int, calendar []P) []P {
	jan := januaryPage - 1
	out := make([]P, 0, len(header)+len(calendar))

	for i := 0; i < jan && i < len(header); i++ {
		out = append(out, header[i])
	}
	for month, page := range calendar {
		if i := jan + month; i >= 0 && i < len(header) {
			out = append(out, header[i])
		}
		out = append(out, page)
	}
	for i := max(jan+len(calendar), 0); i < len(header); i++ {
		out = append(out, header[i])
	}
	return out
}

// HeaderIndex returns the 0-based header page used as the placeholder for
// month (1-12) on combined spreads, wrapping around short documents. It
// returns -1 when the header has no pages.
func HeaderIndex(januaryPage, month, headerPages int) int {
	if headerPages <= 0 {
		return -1
	}
	i := (januaryPage - 1 + month - 1) % headerPages
	if i < 0 {
		i += headerPages
	}
	return i
}
