package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/family-health/internal/platform/logger"
)

// NewRouter constructs the HTTP router for the records UI.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", s.index)
	r.Post("/members", s.saveMember)
	r.Post("/form/reset", s.resetForm)
	r.Get("/members/{id}", s.viewMember)
	r.Get("/members/{id}/delete", s.confirmDelete)
	r.Post("/members/{id}/{action}", s.dispatchMemberAction)
	r.Get("/clear", s.confirmClearAll)
	r.Post("/clear", s.clearAll)
	r.Get("/bmi", s.previewBMI)
	r.Get("/api/members", s.exportMembers)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
