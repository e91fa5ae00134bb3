package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/encoding/protojson"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	engine "github.com/oshokin/catpoint/internal/service/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// StatusReader returns the engine state.
type StatusReader interface {
	Status(ctx context.Context) (engine.Status, error)
}

// HistoryReader returns recorded alarm status writes, newest first.
type HistoryReader interface {
	AlarmHistory(ctx context.Context, limit int) ([]domain.AlarmChange, error)
}

// routes holds the optional parts of the router.
type routes struct {
	history HistoryReader
}

// Option configures NewRouter.
type Option func(*routes)

// WithAlarmHistory serves GET /v1/alarm-history from history.
func WithAlarmHistory(history HistoryReader) Option {
	return func(r *routes) {
		r.history = history
	}
}

// NewRouter builds the HTTP handler. Requests are logged at debug level and panics become 500s.
func NewRouter(ctx context.Context, status StatusReader, gatherer prometheus.Gatherer, opts ...Option) http.Handler {
	var optional routes
	for _, opt := range opts {
		opt(&optional)
	}

	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", statusHandler(status)).Methods(http.MethodGet)

	if optional.history != nil {
		r.HandleFunc("/v1/alarm-history", historyHandler(optional.history)).Methods(http.MethodGet)
	}

	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{ctx: ctx}),
		handlers.PrintRecoveryStack(true),
	)(r)

	return handlers.LoggingHandler(accessLog{ctx: ctx}, recovered)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statusHandler(status StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := status.Status(r.Context())
		if err != nil {
			logger.ErrorKV(r.Context(), "Failed to read status", "error", err)
			http.Error(w, "unable to get status", http.StatusInternalServerError)

			return
		}

		body, err := protojson.Marshal(wire.SnapshotToStruct(&wire.Snapshot{
			AlarmStatus:  current.AlarmStatus,
			ArmingStatus: current.ArmingStatus,
			CatDetected:  current.CatDetected,
			Sensors:      current.Sensors,
		}))
		if err != nil {
			http.Error(w, "unable to encode status", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// historyHandler answers ?limit=N with the latest alarm writes; no limit means the default.
func historyHandler(history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requested := 0

		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}

			requested = parsed
		}

		limit, err := domain.AlarmHistoryLimit(requested)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		changes, err := history.AlarmHistory(r.Context(), limit)
		if err != nil {
			logger.ErrorKV(r.Context(), "Failed to read alarm history", "error", err)
			http.Error(w, "unable to get alarm history", http.StatusInternalServerError)

			return
		}

		body, err := protojson.Marshal(wire.AlarmHistoryToList(changes))
		if err != nil {
			http.Error(w, "unable to encode alarm history", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// accessLog forwards Apache-style access lines to the debug log.
type accessLog struct {
	ctx context.Context //nolint:containedctx // Carries the logger only.
}

func (a accessLog) Write(p []byte) (int, error) {
	logger.Debug(a.ctx, strings.TrimSpace(string(p)))

	return len(p), nil
}

// recoveryLogger reports recovered panics.
type recoveryLogger struct {
	ctx context.Context //nolint:containedctx // Carries the logger only.
}

func (l recoveryLogger) Println(args ...any) {
	logger.ErrorKV(l.ctx, "HTTP handler panicked", "panic", strings.TrimSpace(fmt.Sprintln(args...)))
}
