// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/muster/internal/app"
	"github.com/okian/muster/internal/domain/model"
)

// ListDependencies defines the interface for stratagem listing operations
type ListDependencies interface {
	Stratagems(ctx context.Context, faction, phase string, limit int) ([]model.Stratagem, error)
}

// StratagemsHandler handles stratagem listing requests
type StratagemsHandler struct {
	deps ListDependencies
}

// NewStratagemsHandler creates a new stratagems handler
func NewStratagemsHandler(deps ListDependencies) *StratagemsHandler {
	return &StratagemsHandler{deps: deps}
}

type stratagemListResponse struct {
	Stratagems []stratagemCard `json:"stratagems"`
	Count      int             `json:"count"`
}

// HandleListStratagems handles GET /stratagems?faction=X&phase=Y&limit=N
// requests. All query parameters are optional; the service clamps limit.
func (h *StratagemsHandler) HandleListStratagems(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_stratagems"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	list, err := h.deps.Stratagems(r.Context(), q.Get("faction"), q.Get("phase"), limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownFaction):
			writeError(w, http.StatusNotFound, "unknown_faction", Wrap(op, err))
		case errors.Is(err, service.ErrUnknownPhase):
			writeError(w, http.StatusBadRequest, "unknown_phase", Wrap(op, err))
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "not_ready", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	resp := stratagemListResponse{
		Stratagems: make([]stratagemCard, 0, len(list)),
		Count:      len(list),
	}
	for _, s := range list {
		resp.Stratagems = append(resp.Stratagems, toStratagemCard(s))
	}
	writeJSON(w, http.StatusOK, resp)
}
