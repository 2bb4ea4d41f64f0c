package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
)

// maxBodyBytes caps the POST /odds body.
const maxBodyBytes = 1 << 20

// MaxTeams bounds the roster a single request may ask about.
const MaxTeams = service.MaxTeams

// OddsHandler handles odds requests.
type OddsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewOddsHandler creates a new odds handler.
func NewOddsHandler(deps Dependencies, log logger.Logger) *OddsHandler {
	return &OddsHandler{deps: deps, logger: log}
}

// HandlePostOdds handles POST /odds requests.
func (h *OddsHandler) HandlePostOdds(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_odds"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req service.OddsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Rounds > MaxRounds || len(req.Teams) > MaxTeams {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	resp, err := h.deps.Odds(r.Context(), req)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
