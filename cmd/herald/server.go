package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"herald/internal/errors"
	"herald/internal/middleware"
	"herald/internal/models"
	"herald/internal/service"
	"herald/internal/tracing"
	"herald/internal/validation"
	"herald/pkg/circuitbreaker"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type Server struct {
	router     *mux.Router
	logger     *logrus.Logger
	errLogger  *errors.Logger
	cfg        *models.Config
	broadcasts *service.BroadcastService
	events     *service.EventHub
	transport  transportStatus
	server     *http.Server
}

// transportStatus is what the health endpoint needs from the bot client.
type transportStatus interface {
	BreakerStats() circuitbreaker.Stats
}

func NewServer(cfg *models.Config, broadcasts *service.BroadcastService, events *service.EventHub, transport transportStatus, logger *logrus.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		errLogger:  &errors.Logger{Logger: logger},
		cfg:        cfg,
		broadcasts: broadcasts,
		events:     events,
		transport:  transport,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireAPIKey)

	api.HandleFunc("/broadcasts", s.handleCreateBroadcast()).Methods(http.MethodPost)
	api.HandleFunc("/broadcasts/pending", s.handlePendingCount()).Methods(http.MethodGet)
	api.HandleFunc("/broadcasts/{id:[0-9]+}", s.handleGetBroadcast()).Methods(http.MethodGet)

	api.HandleFunc("/logs/stats", s.handleLogStats()).Methods(http.MethodGet)
	api.HandleFunc("/logs/recent", s.handleRecentLogs()).Methods(http.MethodGet)
	api.HandleFunc("/logs/stream", s.handleLogStream()).Methods(http.MethodGet)

	api.HandleFunc("/recipients", s.handleListRecipients()).Methods(http.MethodGet)
	api.HandleFunc("/recipients/{id}", s.handleGetRecipient()).Methods(http.MethodGet)
	api.HandleFunc("/recipients/{id}", s.handleUpsertRecipient()).Methods(http.MethodPut)

	api.HandleFunc("/tags", s.handleListTags()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting admin API server on port %d", s.cfg.Server.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps an error onto the standardized HTTP error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := tracing.GetRequestID(r.Context())
	status := errors.HTTPStatusCode(err)

	if status >= 500 {
		s.errLogger.LogRetryableError(err, "Request failed", logrus.Fields{
			service.LogFieldRequestID: requestID,
		})
	}

	s.writeJSON(w, status, errors.ToHTTPResponse(err, requestID))
}

// decodeBody decodes a JSON request body with a size cap.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := validation.ValidateHTTPRequestSize(r, maxRequestBodyBytes); err != nil {
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid JSON body").
			WithUserMessage("Request body is not valid JSON")
	}
	return nil
}

// Handler implementations

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := s.broadcasts.PendingCount(r.Context())
		if err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  "database unavailable",
			})
			return
		}

		body := map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"pending": pending,
		}
		if s.transport != nil {
			body["transport"] = s.transport.BreakerStats()
		}
		s.writeJSON(w, http.StatusOK, body)
	}
}

// createBroadcastRequest is the POST /broadcasts body. A missing or zero
// send_at dispatches immediately; anything else goes to the scheduled queue.
type createBroadcastRequest struct {
	Text   string            `json:"text"`
	Target models.TargetSpec `json:"target"`
	Media  *models.MediaRef  `json:"media,omitempty"`
	SendAt *time.Time        `json:"send_at,omitempty"`
}

func (s *Server) handleCreateBroadcast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBroadcastRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		breq := service.BroadcastRequest{
			Text:   req.Text,
			Target: req.Target,
			Media:  req.Media,
		}

		if req.SendAt == nil || req.SendAt.IsZero() {
			result, err := s.broadcasts.SendNow(r.Context(), breq)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]interface{}{
				"dispatched": true,
				"sent":       result.Sent,
				"total":      result.Total,
				"status":     string(result.FinalStatus()),
			})
			return
		}

		breq.SendAt = *req.SendAt
		id, err := s.broadcasts.Schedule(r.Context(), breq)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":      id,
			"status":  string(models.StatusPending),
			"send_at": req.SendAt.UTC().Format(time.RFC3339),
		})
	}
}

func (s *Server) handleGetBroadcast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid message id"))
			return
		}

		msg, err := s.broadcasts.GetMessage(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, msg)
	}
}

func (s *Server) handlePendingCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.broadcasts.PendingCount(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"pending": count})
	}
}

func (s *Server) handleLogStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.broadcasts.LogStats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		body := map[string]int64{
			string(models.OutcomeSent):    stats[models.OutcomeSent],
			string(models.OutcomeFailed):  stats[models.OutcomeFailed],
			string(models.OutcomeBlocked): stats[models.OutcomeBlocked],
		}
		s.writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) handleRecentLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit"))
				return
			}
			limit = parsed
		}

		entries, err := s.broadcasts.RecentLogs(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []models.DeliveryLogEntry{}
		}
		s.writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleListRecipients() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipients, err := s.broadcasts.ListRecipients(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if recipients == nil {
			recipients = []models.Recipient{}
		}
		s.writeJSON(w, http.StatusOK, recipients)
	}
}

func (s *Server) handleGetRecipient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, err := s.broadcasts.GetRecipient(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, recipient)
	}
}

// upsertRecipientRequest is the PUT /recipients/{id} body.
type upsertRecipientRequest struct {
	DisplayName string   `json:"display_name"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleUpsertRecipient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertRecipientRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		recipient, err := s.broadcasts.UpsertRecipient(r.Context(), mux.Vars(r)["id"], req.DisplayName, req.Tags)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, recipient)
	}
}

func (s *Server) handleListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := s.broadcasts.ListTags(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		s.writeJSON(w, http.StatusOK, tags)
	}
}
