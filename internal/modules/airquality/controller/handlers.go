package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/utils"
)

const observationTimeLayout = "2006-01-02 15:04"

// renderHTML renders into a buffer so a template failure still yields a clean 500.
func renderHTML(w http.ResponseWriter, status int, name string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBody(w, status, utils.ContentTypeHTML, buf.Bytes())
}

func (c *airQualityControllerImpl) renderErrorPage(w http.ResponseWriter, status int, title, msg string) {
	renderHTML(w, status, "error", func(buf *bytes.Buffer) error {
		return views.RenderError(buf, &views.ErrorData{
			Page:    views.Page{Title: title},
			Status:  status,
			Message: msg,
		})
	})
}

// pageDataset loads the dataset for a page. A data source failure is fatal
// for the page and is rendered as a 503 error page.
func (c *airQualityControllerImpl) pageDataset(w http.ResponseWriter) (*types.Dataset, bool) {
	ds, err := c.service.Dataset()
	if err == nil {
		return ds, true
	}
	var dse *repository.DataSourceError
	if errors.As(err, &dse) {
		slog.Error("page: data source unavailable", "error", err)
		c.renderErrorPage(w, http.StatusServiceUnavailable, "Data unavailable", err.Error())
		return nil, false
	}
	slog.Error("page: load dataset failed", "error", err)
	c.renderErrorPage(w, http.StatusInternalServerError, "Error", "failed to load dataset")
	return nil, false
}

func pageInfo(ds *types.Dataset, title, active string) views.Page {
	return views.Page{
		Title:  title,
		Active: active,
		Source: filepath.Base(ds.Source),
		Rows:   ds.Len(),
	}
}

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	column, err := parseColumnParam(r.URL.Query().Get("column"), types.PM10)
	if err != nil {
		c.renderErrorPage(w, http.StatusBadRequest, "Bad request", err.Error())
		return
	}
	ds, ok := c.pageDataset(w)
	if !ok {
		return
	}

	data := views.DashboardData{
		Page:         pageInfo(ds, "Dashboard", "dashboard"),
		Columns:      views.Options(types.Columns, column),
		Column:       column,
		Unit:         column.Unit(),
		Observations: observationsPage(ds, column, parsePage(r)),
	}
	for _, cs := range c.service.Summaries(ds) {
		if cs.Err != nil {
			if cs.Column == column {
				data.SummaryError = cs.Err.Error()
			}
			continue
		}
		if cs.Column == column {
			sum := cs.Summary
			data.Summary = &sum
		}
		data.Describe = append(data.Describe, cs.Summary)
	}

	renderHTML(w, http.StatusOK, "dashboard", func(buf *bytes.Buffer) error {
		return views.RenderDashboard(buf, &data)
	})
}

func (c *airQualityControllerImpl) handleObservationsPartial(w http.ResponseWriter, r *http.Request) {
	column, err := parseColumnParam(r.URL.Query().Get("column"), types.PM10)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.pageDataset(w)
	if !ok {
		return
	}
	data := observationsPage(ds, column, parsePage(r))
	renderHTML(w, http.StatusOK, "observations partial", func(buf *bytes.Buffer) error {
		return views.RenderObservationsPartial(buf, &data)
	})
}

func observationsPage(ds *types.Dataset, column types.Column, page int) views.ObservationsData {
	start, end, current, totalPages := pageBounds(ds.Len(), page, observationsPageSize)
	rows := make([]views.ObservationRow, 0, end-start)
	for i, o := range ds.Observations[start:end] {
		row := views.ObservationRow{
			Index: start + i + 1,
			PM10:  o.PM10,
			Temp:  o.Temp,
			Humi:  o.Humi,
		}
		if o.Time != nil {
			row.Time = o.Time.Format(observationTimeLayout)
		}
		rows = append(rows, row)
	}
	return views.ObservationsData{
		Column:      string(column),
		Rows:        rows,
		Total:       ds.Len(),
		CurrentPage: current,
		TotalPages:  totalPages,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
		PrevPage:    current - 1,
		NextPage:    current + 1,
		PageItems:   buildPageItems(totalPages, current),
	}
}

func (c *airQualityControllerImpl) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	ds, ok := c.pageDataset(w)
	if !ok {
		return
	}
	m := analysis.Correlate(ds, types.Columns)
	data := views.CorrelationsData{
		Page:    pageInfo(ds, "Correlations", "correlations"),
		Columns: m.Columns,
	}
	for i, row := range m.Columns {
		hr := views.HeatRow{Column: row}
		for j, col := range m.Columns {
			hr.Cells = append(hr.Cells, views.HeatCell{
				Row:         row,
				Col:         col,
				Coefficient: m.Values[i][j],
				Count:       m.Counts[i][j],
			})
		}
		data.Rows = append(data.Rows, hr)
	}
	if len(summarized(c.service.Summaries(ds))) == 0 {
		data.ComparisonError = "Not enough data: no column has any values."
	}

	renderHTML(w, http.StatusOK, "correlations", func(buf *bytes.Buffer) error {
		return views.RenderCorrelations(buf, &data)
	})
}

// prediction fits (or reuses) the model for target and evaluates it at the
// request's x1/x2, clamped into the fitting range. Engine errors are returned
// in the result, not as err.
func (c *airQualityControllerImpl) prediction(ds *types.Dataset, target types.Column, r *http.Request) (*analysis.Model, views.PredictionResult, [2]float64, error) {
	res := views.PredictionResult{Target: target, Label: target.Label(), Unit: target.Unit()}
	m, err := c.service.Model(ds, target)
	if err != nil {
		if analysis.IsInsufficientData(err) {
			res.Error = err.Error()
			return nil, res, [2]float64{}, nil
		}
		return nil, res, [2]float64{}, err
	}
	x, err := parseFeatureValues(r, m)
	if err != nil {
		return nil, res, x, err
	}
	x = clampToRanges(m, x)
	res.Value = m.Predict(x)
	res.Equation = m.Equation()
	res.N = m.N
	res.R2 = m.R2
	return m, res, x, nil
}

func (c *airQualityControllerImpl) handlePredictions(w http.ResponseWriter, r *http.Request) {
	target, err := parseColumnParam(r.URL.Query().Get("target"), types.PM10)
	if err != nil {
		c.renderErrorPage(w, http.StatusBadRequest, "Bad request", err.Error())
		return
	}
	ds, ok := c.pageDataset(w)
	if !ok {
		return
	}
	m, res, x, err := c.prediction(ds, target, r)
	if err != nil {
		c.renderErrorPage(w, http.StatusBadRequest, "Bad request", err.Error())
		return
	}

	data := views.PredictionsData{
		Page:    pageInfo(ds, "Predictions", "predictions"),
		Targets: views.Options(types.Columns, target),
		Target:  target,
		Result:  res,
	}
	if m != nil {
		data.Features = featureKey(m)
		data.Sliders = sliders(m, x)
	}
	renderHTML(w, http.StatusOK, "predictions", func(buf *bytes.Buffer) error {
		return views.RenderPredictions(buf, &data)
	})
}

func (c *airQualityControllerImpl) handlePredictionPartial(w http.ResponseWriter, r *http.Request) {
	target, err := parseColumnParam(r.URL.Query().Get("target"), types.PM10)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := c.pageDataset(w)
	if !ok {
		return
	}
	_, res, _, err := c.prediction(ds, target, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	renderHTML(w, http.StatusOK, "prediction partial", func(buf *bytes.Buffer) error {
		return views.RenderPredictionPartial(buf, &res)
	})
}
