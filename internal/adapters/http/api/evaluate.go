// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/muster/internal/app"
	"github.com/okian/muster/internal/domain/roster"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// anything larger spills to temp files.
const maxMultipartMemory = 1 << 20

// defaultMaxUploadBytes caps roster payloads when no explicit limit is set.
const defaultMaxUploadBytes = 5 << 20

// EvaluateDependencies defines the interface for roster evaluation dependencies
type EvaluateDependencies interface {
	EvaluateRoster(ctx context.Context, name string, data []byte) (*Evaluation, error)
}

// EvaluateHandler handles roster evaluation requests
type EvaluateHandler struct {
	deps     EvaluateDependencies
	maxBytes int64
}

// NewEvaluateHandler creates a new evaluate handler
func NewEvaluateHandler(deps EvaluateDependencies, maxUploadBytes int64) *EvaluateHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &EvaluateHandler{deps: deps, maxBytes: maxUploadBytes}
}

// HandleEvaluate handles POST /evaluate requests. The roster export arrives
// either as a multipart form file named "roster" or as the raw request body
// with an optional ?filename= hint used for format sniffing.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	name, data, err := readRosterUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", NewKind(op, ErrTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := h.deps.EvaluateRoster(r.Context(), name, data)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrUnsupportedSchema):
			writeError(w, http.StatusUnprocessableEntity, "unsupported_schema", Wrap(op, err))
		case errors.Is(err, roster.ErrMalformedDocument):
			writeError(w, http.StatusBadRequest, "malformed_roster", Wrap(op, err))
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "not_ready", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationResponse(ev))
}

// readRosterUpload extracts the roster bytes and a filename hint from either
// a multipart form or the raw body.
func readRosterUpload(r *http.Request) (string, []byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return "", nil, err
		}
		file, header, err := r.FormFile("roster")
		if err != nil {
			return "", nil, errors.New("missing form file \"roster\"")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		if len(data) == 0 {
			return "", nil, errors.New("empty roster upload")
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty roster upload")
	}
	return r.URL.Query().Get("filename"), data, nil
}

// rosterSummary mirrors the OpenAPI schema for the parsed roster portion of
// the evaluation response.
type rosterSummary struct {
	Name        string        `json:"name,omitempty"`
	FactionIDs  []string      `json:"faction_ids"`
	Detachments []string      `json:"detachments,omitempty"`
	Units       []unitSummary `json:"units"`
}

type unitSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords,omitempty"`
	Models   int      `json:"models"`
}

type matchedStratagem struct {
	stratagemCard
	MatchedUnits []string `json:"matched_units"`
}

type diagnosticsResponse struct {
	UnresolvedFactions   []string `json:"unresolved_factions,omitempty"`
	UnresolvedRenames    []string `json:"unresolved_renames,omitempty"`
	UnitsWithoutKeywords []string `json:"units_without_keywords,omitempty"`
}

type evaluationResponse struct {
	Roster          rosterSummary       `json:"roster"`
	SnapshotVersion string              `json:"snapshot_version"`
	Stratagems      []matchedStratagem  `json:"stratagems"`
	Diagnostics     diagnosticsResponse `json:"diagnostics"`
	Warnings        []string            `json:"warnings,omitempty"`
}

func toEvaluationResponse(ev *Evaluation) evaluationResponse {
	resp := evaluationResponse{
		SnapshotVersion: ev.Version,
		Stratagems:      make([]matchedStratagem, 0, len(ev.Matches)),
		Diagnostics: diagnosticsResponse{
			UnresolvedFactions:   ev.Diagnostics.UnresolvedFactions,
			UnresolvedRenames:    ev.Diagnostics.UnresolvedRenames,
			UnitsWithoutKeywords: ev.Diagnostics.UnitsWithoutKeywords,
		},
		Warnings: ev.Warnings,
	}
	if ev.Roster != nil {
		resp.Roster = rosterSummary{
			Name:       ev.Roster.Name,
			FactionIDs: ev.Roster.FactionIDs,
			Units:      make([]unitSummary, 0, len(ev.Roster.Units)),
		}
		for _, d := range ev.Roster.Detachments {
			resp.Roster.Detachments = append(resp.Roster.Detachments, d.Name)
		}
		for _, u := range ev.Roster.Units {
			resp.Roster.Units = append(resp.Roster.Units, unitSummary{
				ID:       u.ID,
				Name:     u.Name,
				Keywords: u.Keywords,
				Models:   u.Models,
			})
		}
	}
	for _, m := range ev.Matches {
		resp.Stratagems = append(resp.Stratagems, matchedStratagem{
			stratagemCard: toStratagemCard(m.Stratagem),
			MatchedUnits:  m.MatchedUnits,
		})
	}
	return resp
}
