package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-server/internal/config"
	httpapi "airquality-server/internal/httpapi"
	airquality "airquality-server/internal/modules/airquality"
	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/repository"
	airqualityviews "airquality-server/internal/modules/airquality/views"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataPath", cfg.DataPath,
		"dataDelimiter", string(cfg.DataDelimiter),
		"dataTimeColumn", cfg.DataTimeColumn,
		"dataTimeLayout", cfg.DataTimeLayout,
		"dataWatch", cfg.DataWatch,
		"uiLocale", cfg.UILocale,
		"chartWidth", cfg.ChartWidth,
		"chartHeight", cfg.ChartHeight,
	)

	if err := airqualityviews.LoadTemplates(cfg.UILocale); err != nil {
		return err
	}

	opts := repository.DefaultOptions()
	opts.Delimiter = cfg.DataDelimiter
	opts.TimeColumn = cfg.DataTimeColumn
	opts.TimeLayout = cfg.DataTimeLayout
	repo := repository.NewRepository(cfg.DataPath, opts, slog.Default().With("component", "repository"))

	// A missing file is not fatal at startup: pages answer 503 until it appears.
	if ds, err := repo.Load(); err != nil {
		slog.Warn("initial dataset load failed", "error", err)
	} else {
		slog.Info("dataset ready", "rows", ds.Len())
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := make(chan struct{})
	if cfg.DataWatch {
		go func() {
			defer close(watchDone)
			if err := repo.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("file watch stopped (falling back to re-reading on every request)", "error", err)
			}
		}()
	} else {
		close(watchDone)
	}

	mux := httpapi.NewMux(repo)
	airquality.RegisterFeature(mux, repo, charts.Size{Width: cfg.ChartWidth, Height: cfg.ChartHeight})

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stopWatch()
		<-watchDone
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("file watch stopping")
	stopWatch()
	<-watchDone

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
