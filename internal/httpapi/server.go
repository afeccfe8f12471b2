package httpapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"airquality-server/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gzhttp.GzipHandler(requestLogger(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
