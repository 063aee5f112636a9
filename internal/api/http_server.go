package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lendhub/internal/config"
	"lendhub/internal/domain"
	"lendhub/internal/export"
	"lendhub/internal/metrics"
	"lendhub/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const userIDHeader = "X-User-Id"

// HTTPServer exposes the booking engine as a JSON API. The acting user comes
// from the X-User-Id header; visibility and authorization live in the
// services, this layer only translates.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	items    *service.ItemService
	users    *service.UserService
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	log      zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	bookings *service.BookingService,
	items *service.ItemService,
	users *service.UserService,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		items:    items,
		users:    users,
		exporter: exporter,
		auth:     NewHTTPAuth(cfg),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	} else {
		srv.log = zerolog.Nop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", srv.handleCreateUser)
	mux.HandleFunc("GET /users/{id}", srv.handleGetUser)
	mux.HandleFunc("GET /users", srv.handleListUsers)

	mux.HandleFunc("POST /items", srv.handleCreateItem)
	mux.HandleFunc("PATCH /items/{id}", srv.handleUpdateItem)
	mux.HandleFunc("GET /items/{id}", srv.handleGetItem)
	mux.HandleFunc("GET /items", srv.handleListItems)
	mux.HandleFunc("POST /items/{id}/comment", srv.handleAddComment)

	mux.HandleFunc("POST /bookings", srv.handleCreateBooking)
	mux.HandleFunc("PATCH /bookings/{id}", srv.handleDecideBooking)
	mux.HandleFunc("GET /bookings/owner", srv.handleListOwnerBookings)
	mux.HandleFunc("GET /bookings/export", srv.handleExportBookings)
	mux.HandleFunc("GET /bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("GET /bookings", srv.handleListBookerBookings)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps the error kind onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.ErrorKind(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindUnauthorized:
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}
