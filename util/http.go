package util

import (
	"net/http"
	"strings"
)

// baseResponseWriter rewrites absolute Location headers so redirects issued
// behind a base prefix land back under that prefix.
type baseResponseWriter struct {
	http.ResponseWriter
	base string // without trailing slash
}

func (w *baseResponseWriter) WriteHeader(statusCode int) {
	if w.base != "" {
		if location := w.Header().Get("Location"); strings.HasPrefix(location, "/") {
			w.Header().Set("Location", w.base+location)
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// HandlePrefix mounts a handler under a base prefix. The prefix is stripped
// from incoming request paths and restored on redirect locations, so handlers
// can work with root-relative paths throughout.
func HandlePrefix(mux *http.ServeMux, base string, handler http.Handler) {
	base = strings.TrimSuffix(base, "/")
	mux.Handle(
		base+"/", // http mux needs trailing slash
		http.StripPrefix(
			base,
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					handler.ServeHTTP(&baseResponseWriter{w, base}, r)
				},
			),
		),
	)
}
