package httpapi

import "net/http"

func NewMux(source DataSource) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, source)
	return mux
}
