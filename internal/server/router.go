package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler возвращает маршрутизатор API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/start", counted("start", s.StartRun))
	mux.HandleFunc("/stop", counted("stop", s.StopRun))
	mux.HandleFunc("/stream", counted("stream", s.Stream))
	mux.HandleFunc("/export", counted("export", s.ExportCSV))
	mux.HandleFunc("/result", counted("result", s.Result))
	mux.HandleFunc("/minimize", counted("minimize", s.Minimize))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func counted(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestsTotal.WithLabelValues(route).Inc()
		next(w, r)
	}
}
