package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/export"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/service"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/utils"
)

// dataset loads the dataset for a JSON, chart or export response.
func (c *airQualityControllerImpl) dataset(w http.ResponseWriter) (*types.Dataset, bool) {
	ds, err := c.service.Dataset()
	if err == nil {
		return ds, true
	}
	var dse *repository.DataSourceError
	if errors.As(err, &dse) {
		slog.Error("data source unavailable", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	slog.Error("load dataset failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset")
	return nil, false
}

// writeAnalysisError maps engine errors to 422 and everything else to 500.
func writeAnalysisError(w http.ResponseWriter, err error) {
	if analysis.IsInsufficientData(err) {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Error("analysis failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, err.Error())
}

func summarized(summaries []service.ColumnSummary) []analysis.SummaryStats {
	out := make([]analysis.SummaryStats, 0, len(summaries))
	for _, cs := range summaries {
		if cs.Err == nil {
			out = append(out, cs.Summary)
		}
	}
	return out
}

type observationsResponse struct {
	Page         int                 `json:"page"`
	Limit        int                 `json:"limit"`
	Total        int                 `json:"total"`
	TotalPages   int                 `json:"totalPages"`
	Observations []types.Observation `json:"observations"`
}

func (c *airQualityControllerImpl) handleObservations(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	start, end, page, totalPages := pageBounds(ds.Len(), parsePage(r), limit)
	utils.WriteJSON(w, http.StatusOK, observationsResponse{
		Page:         page,
		Limit:        limit,
		Total:        ds.Len(),
		TotalPages:   totalPages,
		Observations: ds.Observations[start:end],
	})
}

type summaryResponse struct {
	Column  types.Column           `json:"column"`
	Summary *analysis.SummaryStats `json:"summary"`
	Error   string                 `json:"error,omitempty"`
}

func (c *airQualityControllerImpl) handleSummaries(w http.ResponseWriter, r *http.Request) {
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	summaries := c.service.Summaries(ds)
	out := make([]summaryResponse, 0, len(summaries))
	for _, cs := range summaries {
		resp := summaryResponse{Column: cs.Column}
		if cs.Err != nil {
			resp.Error = cs.Err.Error()
		} else {
			sum := cs.Summary
			resp.Summary = &sum
		}
		out = append(out, resp)
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *airQualityControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	column, err := types.ParseColumn(r.PathValue("column"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	sum, err := analysis.Summarize(ds, column)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, sum)
}

func (c *airQualityControllerImpl) handleSeries(w http.ResponseWriter, r *http.Request) {
	column, err := types.ParseColumn(r.PathValue("column"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"column": column,
		"points": ds.Series(column),
	})
}

func (c *airQualityControllerImpl) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, analysis.Correlate(ds, types.Columns))
}

type regressionResponse struct {
	*analysis.Model
	Equation string `json:"equation"`
}

func (c *airQualityControllerImpl) model(w http.ResponseWriter, r *http.Request) (*analysis.Model, bool) {
	target, err := types.ParseColumn(r.PathValue("target"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	ds, ok := c.dataset(w)
	if !ok {
		return nil, false
	}
	m, err := c.service.Model(ds, target)
	if err != nil {
		writeAnalysisError(w, err)
		return nil, false
	}
	return m, true
}

func (c *airQualityControllerImpl) handleRegression(w http.ResponseWriter, r *http.Request) {
	m, ok := c.model(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, regressionResponse{Model: m, Equation: m.Equation()})
}

type predictResponse struct {
	Target     types.Column    `json:"target"`
	Features   [2]types.Column `json:"features"`
	Inputs     [2]float64      `json:"inputs"`
	Prediction float64         `json:"prediction"`
}

func (c *airQualityControllerImpl) handlePredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("x1") == "" || q.Get("x2") == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing 'x1' or 'x2'")
		return
	}
	m, ok := c.model(w, r)
	if !ok {
		return
	}
	x, err := parseFeatureValues(r, m)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, predictResponse{
		Target:     m.Target,
		Features:   m.Features,
		Inputs:     x,
		Prediction: m.Predict(x),
	})
}

// writeChart renders a chart into a buffer and maps ErrNotEnoughData to 422.
func writeChart(w http.ResponseWriter, format charts.Format, draw func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		if errors.Is(err, charts.ErrNotEnoughData) {
			utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("chart render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	utils.WriteBody(w, http.StatusOK, format.ContentType(), buf.Bytes())
}

// chartRequest parses the optional {column} path value and ?format=.
func chartRequest(r *http.Request) (types.Column, charts.Format, error) {
	format, err := charts.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return "", "", err
	}
	s := r.PathValue("column")
	if s == "" {
		return "", format, nil
	}
	column, err := types.ParseColumn(s)
	return column, format, err
}

func (c *airQualityControllerImpl) handleTimeSeriesChart(w http.ResponseWriter, r *http.Request) {
	column, format, err := chartRequest(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	writeChart(w, format, func(buf *bytes.Buffer) error {
		return charts.TimeSeries(buf, format, column, ds.Series(column), c.chartSize)
	})
}

func (c *airQualityControllerImpl) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	column, format, err := chartRequest(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	box, err := analysis.BoxPlot(ds, column)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeChart(w, format, func(buf *bytes.Buffer) error {
		return charts.Distribution(buf, format, box, c.chartSize)
	})
}

func (c *airQualityControllerImpl) handleComparisonChart(w http.ResponseWriter, r *http.Request) {
	_, format, err := chartRequest(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	summaries := summarized(c.service.Summaries(ds))
	writeChart(w, format, func(buf *bytes.Buffer) error {
		return charts.Comparison(buf, format, summaries, c.chartSize)
	})
}

func (c *airQualityControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	ds, ok := c.dataset(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, ds); err != nil {
		slog.Error("export: write workbook failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export dataset")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="observations.xlsx"`)
	utils.WriteBody(w, http.StatusOK, utils.ContentTypeXLSX, buf.Bytes())
}
