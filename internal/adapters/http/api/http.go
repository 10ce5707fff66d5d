// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	eventqueue "github.com/okian/cadence/internal/adapters/mq/queue"
	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submit queues a completion. duplicate is true when the task is
	// already waiting in the queue.
	Submit(ctx context.Context, ref model.TaskRef) (eventID string, duplicate bool, err error)
	CompleteTask(ctx context.Context, ref model.TaskRef) (engine.Completion, error)

	CreateStreak(ctx context.Context, userID int64) (model.StreakRecord, error)
	Streak(ctx context.Context, userID int64) (model.StreakRecord, error)
	DeleteStreak(ctx context.Context, userID int64) (bool, error)
	AdvanceStreak(ctx context.Context, userID int64) (model.StreakRecord, error)

	AwardBadge(ctx context.Context, userID int64, name, description string) (model.Badge, error)
	Badges(ctx context.Context, userID int64) ([]model.Badge, error)
	Points(ctx context.Context, userID int64) (int64, error)

	// Location defines the calendar used to render streak dates.
	Location() *time.Location
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() service.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	tasksHandler  *TasksHandler
	usersHandler  *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		tasksHandler:  NewTasksHandler(deps),
		usersHandler:  NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Post("/tasks/{kind}/{id}/complete", MetricsMiddleware(s.tasksHandler.HandleComplete, "complete"))
	r.Post("/completions", MetricsMiddleware(s.tasksHandler.HandleSubmit, "completions"))

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/streak", MetricsMiddleware(s.usersHandler.HandleCreateStreak, "streak"))
		r.Get("/streak", MetricsMiddleware(s.usersHandler.HandleGetStreak, "streak"))
		r.Delete("/streak", MetricsMiddleware(s.usersHandler.HandleDeleteStreak, "streak"))
		r.Post("/streak/advance", MetricsMiddleware(s.usersHandler.HandleAdvanceStreak, "streak_advance"))
		r.Get("/badges", MetricsMiddleware(s.usersHandler.HandleListBadges, "badges"))
		r.Post("/badges", MetricsMiddleware(s.usersHandler.HandleAwardBadge, "badges"))
		r.Get("/points", MetricsMiddleware(s.usersHandler.HandlePoints, "points"))
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine and service errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, eventqueue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, eventqueue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// pathInt64 reads a positive integer path parameter.
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name + " " + strconv.Quote(raw))
	}
	return id, nil
}
