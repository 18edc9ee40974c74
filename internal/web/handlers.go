package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"calbook/internal/holiday"
	"calbook/internal/layout"
	appLog "calbook/internal/log"
	"calbook/internal/model"
)

type holidayResponse struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// handleHolidays lists every supported holiday resolved for ?year=.
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	year := parseIntDefault(r.URL.Query().Get("year"), s.defaultYear())
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	out := make([]holidayResponse, 0, len(holiday.Kinds()))
	for _, k := range holiday.Kinds() {
		d, ok := holiday.Resolve(k, year)
		if !ok {
			continue
		}
		out = append(out, holidayResponse{
			Kind: string(k),
			Name: k.DisplayName(),
			Date: d.Format("2006-01-02"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     year,
		"holidays": out,
	})
}

type layoutResponse struct {
	Title     string    `json:"title"`
	Weeks     int       `json:"weeks"`
	RowHeight float64   `json:"row_height_in"`
	Weekdays  [7]string `json:"weekdays"`
	Days      [][7]int  `json:"days"`
}

// handleLayout returns the week grid for ?year=&month=. Days outside the
// month are 0.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), s.defaultYear())
	month := parseIntDefault(q.Get("month"), 1)
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1..12")
		return
	}

	m := layout.Layout(year, time.Month(month), nil, layout.CalendarGeometry())
	resp := layoutResponse{
		Title:     m.Title(),
		Weeks:     m.Weeks,
		RowHeight: m.RowHeight,
		Weekdays:  layout.WeekdayLabels,
		Days:      make([][7]int, len(m.Cells)),
	}
	for i, row := range m.Cells {
		for j, c := range row {
			resp.Days[i][j] = c.Day
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDocument streams the last generated PDF.
func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	doc := s.Document()
	if doc == nil {
		writeError(w, http.StatusNotFound, "no document generated yet")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.Header().Set("X-Document-Id", doc.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.PDF)
}

type documentResponse struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Year     int             `json:"year"`
	Filename string          `json:"filename"`
	Pages    []model.PageRef `json:"pages"`
}

// handleRegenerate rebuilds the document and publishes it.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if s.generate == nil {
		writeError(w, http.StatusNotImplemented, "regeneration disabled")
		return
	}
	if !s.regenerate.Allow() {
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "regeneration rate limited")
		return
	}

	doc, err := s.generate(r.Context())
	if err != nil {
		appLog.Error("regenerate failed", err)
		writeError(w, http.StatusInternalServerError, "generation failed: "+err.Error())
		return
	}
	s.SetDocument(doc)
	writeJSON(w, http.StatusOK, documentResponse{
		ID:       doc.ID,
		Type:     string(doc.Type),
		Year:     doc.Year,
		Filename: doc.Filename,
		Pages:    doc.Pages,
	})
}

func (s *Server) defaultYear() int {
	if s.cfg != nil && s.cfg.Year > 0 {
		return s.cfg.Year
	}
	return time.Now().Year()
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
