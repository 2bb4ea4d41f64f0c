package api

import (
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/logger"
)

// MaxRounds bounds the rounds a single request may ask for.
const MaxRounds = 100

type distributionQuery struct {
	Rounds           int `validate:"gte=0,lte=100"`
	ParticipantCount int `validate:"gte=0"`
}

type distributionResponse struct {
	Rounds         int               `json:"rounds"`
	Total          string            `json:"total"`
	Multiplicities map[string]string `json:"multiplicities"`
}

type probabilitiesResponse struct {
	Rounds           int                `json:"rounds"`
	ParticipantCount int                `json:"participant_count"`
	Probabilities    map[string]float64 `json:"probabilities"`
}

// DistributionHandler serves the multiplicity and probability forms.
type DistributionHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDistributionHandler creates a new distribution handler.
func NewDistributionHandler(deps Dependencies, log logger.Logger) *DistributionHandler {
	return &DistributionHandler{deps: deps, logger: log}
}

func (h *DistributionHandler) parse(op string, r *http.Request) (distributionQuery, error) {
	var q distributionQuery
	if r.URL.Query().Get("rounds") == "" {
		return q, WrapKind(op, ErrBadRequest, errMissing("rounds"))
	}
	var err error
	if q.Rounds, err = queryInt(r, "rounds", 0); err != nil {
		return q, err
	}
	if q.ParticipantCount, err = queryInt(r, "participants", 0); err != nil {
		return q, err
	}
	return q, validateRequest(op, q)
}

// HandleGetDistribution handles GET /distributions?rounds=N. Multiplicities
// are decimal strings since they outgrow any JSON number.
func (h *DistributionHandler) HandleGetDistribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_distribution"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	q, err := h.parse(op, r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	m, err := h.deps.Distribution(r.Context(), q.Rounds)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{
		Rounds:         q.Rounds,
		Total:          m.Total().String(),
		Multiplicities: multiplicityStrings(m),
	})
}

// HandleGetProbabilities handles GET /probabilities?rounds=N&participants=P.
func (h *DistributionHandler) HandleGetProbabilities(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_probabilities"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	q, err := h.parse(op, r)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	p, err := h.deps.Probabilities(r.Context(), q.Rounds, q.ParticipantCount)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	out := make(map[string]float64, len(p))
	for s, v := range p {
		out[strconv.FormatInt(s, 10)] = v
	}
	participants := q.ParticipantCount
	if participants == 0 {
		participants = h.deps.PlayerCount()
	}
	writeJSON(w, http.StatusOK, probabilitiesResponse{
		Rounds:           q.Rounds,
		ParticipantCount: participants,
		Probabilities:    out,
	})
}

func multiplicityStrings(m distribution.Multiplicities) map[string]string {
	out := make(map[string]string, len(m))
	for s, n := range m {
		out[strconv.FormatInt(s, 10)] = n.String()
	}
	return out
}

type errMissing string

func (e errMissing) Error() string { return "missing query parameter " + string(e) }
