package controller

import (
	"net/http"

	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/service"
)

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	service   *service.Service
	chartSize charts.Size
}

func NewAirQualityController(svc *service.Service, chartSize charts.Size) AirQualityController {
	return &airQualityControllerImpl{service: svc, chartSize: chartSize}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	// pages and HTMX partials
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/observations", c.handleObservationsPartial)
	mux.HandleFunc("GET /correlations", c.handleCorrelations)
	mux.HandleFunc("GET /predictions", c.handlePredictions)
	mux.HandleFunc("GET /predictions/result", c.handlePredictionPartial)

	// charts
	mux.HandleFunc("GET /charts/timeseries/{column}", c.handleTimeSeriesChart)
	mux.HandleFunc("GET /charts/distribution/{column}", c.handleDistributionChart)
	mux.HandleFunc("GET /charts/comparison", c.handleComparisonChart)

	// JSON API
	mux.HandleFunc("GET /api/v1/observations", c.handleObservations)
	mux.HandleFunc("GET /api/v1/summary", c.handleSummaries)
	mux.HandleFunc("GET /api/v1/summary/{column}", c.handleSummary)
	mux.HandleFunc("GET /api/v1/series/{column}", c.handleSeries)
	mux.HandleFunc("GET /api/v1/correlation", c.handleCorrelation)
	mux.HandleFunc("GET /api/v1/regression/{target}", c.handleRegression)
	mux.HandleFunc("GET /api/v1/regression/{target}/predict", c.handlePredict)

	mux.HandleFunc("GET /export/observations.xlsx", c.handleExport)
}
