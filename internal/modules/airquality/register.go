package airquality

import (
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/controller"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/service"
)

func RegisterFeature(mux *http.ServeMux, repo repository.DatasetRepository, chartSize charts.Size) {
	reportService := service.NewService(repo, slog.Default().With("component", "report"))
	airQualityController := controller.NewAirQualityController(reportService, chartSize)
	airQualityController.RegisterRoutes(mux)
}
