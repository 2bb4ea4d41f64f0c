// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"golang.org/x/time/rate"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and tags failures as ErrBadRequest.
func validateRequest(op string, v any) error {
	if err := validate.Struct(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Distribution(ctx context.Context, rounds int) (distribution.Multiplicities, error)
	Probabilities(ctx context.Context, rounds, participantCount int) (distribution.Probabilities, error)
	Odds(ctx context.Context, req service.OddsRequest) (service.OddsResponse, error)
	PlayerCount() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	distributionHandler *DistributionHandler
	oddsHandler         *OddsHandler
	oddsLimiter         *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger      logger.Logger
	oddsLimiter *rate.Limiter
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOddsRateLimit caps POST /odds at rps requests per second with the given
// burst. A non-positive rps leaves the endpoint unlimited.
func WithOddsRateLimit(rps float64, burst int) Option {
	return func(o *serverOptions) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.oddsLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		distributionHandler: NewDistributionHandler(deps, o.logger),
		oddsHandler:         NewOddsHandler(deps, o.logger),
		oddsLimiter:         o.oddsLimiter,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/distributions", MetricsMiddleware(s.distributionHandler.HandleGetDistribution, "distributions"))
	mux.HandleFunc("/probabilities", MetricsMiddleware(s.distributionHandler.HandleGetProbabilities, "probabilities"))
	mux.HandleFunc("/odds", MetricsMiddleware(RateLimitMiddleware(s.oddsHandler.HandlePostOdds, s.oddsLimiter), "odds"))
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

// writeDomainError maps a domain or service error onto a status code.
func writeDomainError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrDistributionInconsistent):
		writeError(w, http.StatusUnprocessableEntity, "distribution_inconsistent", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// queryInt reads an integer query parameter. A missing parameter yields def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind("api.query", ErrBadRequest, err)
	}
	return v, nil
}
