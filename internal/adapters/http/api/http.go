// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/muster/internal/app"
	"github.com/okian/muster/internal/domain/model"
)

// Evaluation mirrors the result shape produced by a roster evaluation.
type Evaluation = service.Evaluation

// SnapshotInfo mirrors the loaded reference snapshot summary.
type SnapshotInfo = service.SnapshotInfo

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EvaluateDependencies
	ListDependencies
	SnapshotDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	evaluateHandler  *EvaluateHandler
	stratagemHandler *StratagemsHandler
	snapshotHandler  *SnapshotHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxUploadBytes caps
// the accepted roster payload size for POST /evaluate.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxUploadBytes int64) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		evaluateHandler:  NewEvaluateHandler(deps, maxUploadBytes),
		stratagemHandler: NewStratagemsHandler(deps),
		snapshotHandler:  NewSnapshotHandler(deps),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/stratagems", MetricsMiddleware(s.stratagemHandler.HandleListStratagems, "stratagems"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
}

// stratagemCard mirrors the OpenAPI schema shared by /evaluate and
// /stratagems responses.
type stratagemCard struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Cost         int      `json:"cost_cp"`
	Phase        string   `json:"phase,omitempty"`
	Legend       string   `json:"legend,omitempty"`
	Description  string   `json:"description,omitempty"`
	FactionScope []string `json:"faction_scope,omitempty"`
	Detachment   string   `json:"detachment,omitempty"`
}

func toStratagemCard(s model.Stratagem) stratagemCard {
	return stratagemCard{
		ID:           s.ID,
		Name:         s.Name,
		Type:         s.Type,
		Cost:         s.Cost,
		Phase:        s.Phase,
		Legend:       s.Legend,
		Description:  s.Description,
		FactionScope: s.FactionScope,
		Detachment:   s.Detachment,
	}
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
