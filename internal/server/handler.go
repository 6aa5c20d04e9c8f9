package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/merge"
	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/pipeline"
)

// Runner executes one forecast. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Latest returns the last scheduled result for the default request, or nil.
// *scheduler.Scheduler implements it.
type Latest interface {
	Latest() *pipeline.Result
}

// Handler serves forecasts over HTTP.
type Handler struct {
	runner   Runner
	defaults pipeline.Request
	latest   Latest
	log      *logrus.Logger
}

func NewHandler(runner Runner, defaults pipeline.Request, log *logrus.Logger) *Handler {
	return &Handler{runner: runner, defaults: defaults, log: log}
}

// WithLatest serves requests without overrides from l while it holds a
// result.
func (h *Handler) WithLatest(l Latest) *Handler {
	h.latest = l
	return h
}

// NewRouter registers all routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/forecast", h.Forecast).Methods("GET")
	return r
}

// WithCORS allows browsers on origins to call the API. No origins leaves h
// unchanged.
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
		ExposedHeaders: []string{"X-Run-ID", "X-Cache"},
	}).Handler(h)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// Forecast runs the pipeline and returns merged records.
// Query parameters: metric, horizon, start, end (YYYY-MM-DD), format (json|csv).
// Without metric, horizon, start or end the latest scheduled result is
// served when there is one.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	req, format, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	res := h.cached(r)
	if res != nil {
		w.Header().Set("X-Cache", "HIT")
	} else {
		res, err = h.runner.Run(r.Context(), req)
		if err != nil {
			status, code := statusFor(err)
			h.log.WithError(err).WithField("status", status).Warn("forecast request failed")
			writeError(w, status, code, err.Error())
			return
		}
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
		err = merge.WriteCSV(w, res.Records)
	default:
		w.Header().Set("Content-Type", "application/json")
		if res.RunID != "" {
			w.Header().Set("X-Run-ID", res.RunID)
		}
		err = merge.WriteJSON(w, res.Records)
	}
	if err != nil {
		h.log.WithError(err).Error("write forecast response")
	}
}

func (h *Handler) cached(r *http.Request) *pipeline.Result {
	if h.latest == nil {
		return nil
	}
	q := r.URL.Query()
	for _, name := range []string{"metric", "horizon", "start", "end"} {
		if q.Has(name) {
			return nil
		}
	}
	return h.latest.Latest()
}

func (h *Handler) parseRequest(r *http.Request) (pipeline.Request, string, error) {
	q := r.URL.Query()
	req := h.defaults

	if v := q.Get("metric"); v != "" {
		g, ok := model.ParseGroupTag(v)
		if !ok {
			return req, "", errors.New("unknown metric " + strconv.Quote(v))
		}
		req.Metric = g
	}
	if v := q.Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, "", errors.New("horizon must be a positive integer")
		}
		req.Horizon = n
	}
	for name, dst := range map[string]*time.Time{"start": &req.Start, "end": &req.End} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return req, "", errors.New(name + " must be YYYY-MM-DD")
		}
		*dst = t
	}

	format := q.Get("format")
	switch format {
	case "", "json":
		format = "json"
	case "csv":
	default:
		return req, "", errors.New("format must be json or csv")
	}
	return req, format, nil
}

// statusFor maps pipeline error kinds onto HTTP statuses.
func statusFor(err error) (int, string) {
	var e *model.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "INTERNAL"
	}
	switch e.Code {
	case model.CodeEmptyReport:
		return http.StatusNotFound, string(e.Code)
	case model.CodeInsufficientData:
		return http.StatusUnprocessableEntity, string(e.Code)
	case model.CodeTimeout:
		return http.StatusGatewayTimeout, string(e.Code)
	case model.CodeAuth, model.CodeUpstream:
		return http.StatusBadGateway, string(e.Code)
	}
	return http.StatusInternalServerError, string(e.Code)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
