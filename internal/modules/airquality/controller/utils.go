package controller

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
)

const (
	observationsPageSize = 20
	defaultAPILimit      = 100
	maxAPILimit          = 1000
	sliderSteps          = 100
)

// parsePage returns the 1-based page number from the request (default 1, min 1).
func parsePage(r *http.Request) int {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultAPILimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxAPILimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxAPILimit)
	}
	return n, nil
}

// parseColumnParam parses a column name, using def when s is empty.
func parseColumnParam(s string, def types.Column) (types.Column, error) {
	if s == "" {
		return def, nil
	}
	return types.ParseColumn(s)
}

// parseFeatureValue parses an x1/x2 query value. Both "12.5" and "12,5" are accepted.
func parseFeatureValue(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid '%s' (expected number)", name)
	}
	return v, nil
}

// parseFeatureValues reads x1 and x2, falling back to the model's feature
// means for absent parameters. Values posted for another target's features
// (the "features" field does not match the model) are ignored.
func parseFeatureValues(r *http.Request, m *analysis.Model) ([2]float64, error) {
	q := r.URL.Query()
	x := [2]float64{m.Ranges[0].Mean, m.Ranges[1].Mean}
	if fs := q.Get("features"); fs != "" && fs != featureKey(m) {
		return x, nil
	}
	for i, name := range []string{"x1", "x2"} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		v, err := parseFeatureValue(name, s)
		if err != nil {
			return x, err
		}
		x[i] = v
	}
	return x, nil
}

// featureKey identifies the inputs a model takes, e.g. "TEMP,HUMI".
func featureKey(m *analysis.Model) string {
	return string(m.Features[0]) + "," + string(m.Features[1])
}

// pageBounds clamps page into [1, totalPages] and returns the slice bounds for it.
func pageBounds(total, page, size int) (start, end, current, totalPages int) {
	totalPages = (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	current = min(max(page, 1), totalPages)
	start = min((current-1)*size, total)
	end = min(start+size, total)
	return start, end, current, totalPages
}

// buildPageItems returns page numbers and ellipsis for the pagination bar.
func buildPageItems(totalPages, currentPage int) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const window = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - window; p <= currentPage+window; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p})
		prev = p
	}
	return items
}

// clampToRanges keeps page inputs inside the values the model was fitted on,
// the same bounds the sliders enforce.
func clampToRanges(m *analysis.Model, x [2]float64) [2]float64 {
	for i := range x {
		x[i] = min(max(x[i], m.Ranges[i].Min), m.Ranges[i].Max)
	}
	return x
}

// sliders bounds each feature input by the fitting rows and positions it at
// the requested value, clamped into range.
func sliders(m *analysis.Model, x [2]float64) []views.Slider {
	out := make([]views.Slider, 0, 2)
	for i, name := range []string{"x1", "x2"} {
		rng := m.Ranges[i]
		step := (rng.Max - rng.Min) / sliderSteps
		if step <= 0 {
			step = 0.1
		}
		out = append(out, views.Slider{
			Name:   name,
			Column: m.Features[i],
			Label:  m.Features[i].Label(),
			Min:    rng.Min,
			Max:    rng.Max,
			Step:   step,
			Value:  min(max(x[i], rng.Min), rng.Max),
		})
	}
	return out
}
