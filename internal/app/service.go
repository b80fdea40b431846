// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	repository "github.com/okian/muster/internal/adapters/repository"
	"github.com/okian/muster/internal/adapters/snapshot"
	"github.com/okian/muster/internal/domain/engine"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/internal/domain/normalize"
	"github.com/okian/muster/internal/domain/roster"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Default configuration constants.
const (
	defaultMaxQueryLimit      = 200
	nanosecondsPerMillisecond = 1e6
)

// SnapshotInfo describes the reference snapshot the service is serving.
type SnapshotInfo struct {
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
	Stratagems int       `json:"stratagems"`
	Factions   int       `json:"factions"`
	UnitNames  int       `json:"unit_names"`
	Skipped    int       `json:"skipped_rows"`
}

// MatchedStratagem pairs a usable card with the units that satisfied its
// requirements.
type MatchedStratagem struct {
	Stratagem    model.Stratagem
	MatchedUnits []string // unit IDs in document order; empty when roster-wide
}

// Evaluation is the full outcome of parsing and evaluating one roster
// document. Matches keep the engine's canonical order.
type Evaluation struct {
	Roster      *model.Roster
	Matches     []MatchedStratagem
	Diagnostics model.Diagnostics
	Warnings    []string
	Version     string
}

// Service implements the API dependencies for the eligibility system.
type Service struct {
	mu sync.RWMutex

	// Core components
	parser     *roster.Parser
	store      repository.Store
	normalizer *normalize.Normalizer
	engine     *engine.Engine

	// Snapshot bookkeeping
	info SnapshotInfo

	// Configuration
	snapshotDir   string
	maxQueryLimit int

	// State
	started     bool
	evaluations atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSnapshotDir points the service at an on-disk snapshot directory.
// Empty keeps the embedded default snapshot.
func WithSnapshotDir(dir string) Option {
	return func(s *Service) {
		s.snapshotDir = dir
	}
}

// WithMaxQueryLimit caps how many cards a single listing query may return.
func WithMaxQueryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQueryLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxQueryLimit: defaultMaxQueryLimit,
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the reference snapshot and wires the evaluation pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting eligibility service...")

	loader := snapshot.NewLoader(snapshot.WithLogger(s.logger.Named("snapshot")))
	var (
		snap *snapshot.Snapshot
		err  error
	)
	if s.snapshotDir != "" {
		snap, err = loader.LoadDir(ctx, s.snapshotDir)
	} else {
		snap, err = loader.Load(ctx, snapshot.DefaultFS())
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if s.snapshotDir != "" {
		s.logger.Info(ctx, "using snapshot directory", logger.String("dir", s.snapshotDir))
	} else {
		s.logger.Info(ctx, "using embedded default snapshot")
	}

	store := repository.New(snap)

	normOpts := []normalize.Option{
		normalize.WithFactionAliases(snap.Aliases),
		normalize.WithUnitRenames(snap.Renames),
	}
	if len(snap.UnitNames) > 0 {
		normOpts = append(normOpts, normalize.WithUnitVocabulary(func(name string) bool {
			return store.HasUnitName(context.Background(), name)
		}))
	}

	s.parser = roster.NewParser()
	s.store = store
	s.normalizer = normalize.New(store, normOpts...)
	s.engine = engine.New(store)
	s.info = SnapshotInfo{
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
		Stratagems: len(snap.Stratagems),
		Factions:   len(snap.Factions),
		UnitNames:  len(snap.UnitNames),
		Skipped:    snap.Skipped,
	}

	s.started = true
	s.logger.Info(ctx, "eligibility service started",
		logger.String("version", s.info.Version),
		logger.Int("stratagems", s.info.Stratagems),
		logger.Int("factions", s.info.Factions),
		logger.Int("unitNames", s.info.UnitNames),
	)

	return nil
}

// Stop gracefully shuts down the service. The pipeline holds no external
// resources, so stopping only flips state.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "eligibility service stopped")
}

// EvaluateRoster parses, normalizes, and evaluates one uploaded roster
// document. The file name only picks the archive or plain-XML decode path.
func (s *Service) EvaluateRoster(ctx context.Context, name string, data []byte) (*Evaluation, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return nil, ErrNotStarted
	}
	parser, normalizer, eng, store, version := s.parser, s.normalizer, s.engine, s.store, s.info.Version
	s.mu.RUnlock()

	parseStart := time.Now()
	parsed, err := parser.ParseFile(ctx, name, data)
	if err != nil {
		metrics.RecordParseFailure(parseFailureReason(err))
		return nil, err
	}
	metrics.RecordParseDuration(float64(time.Since(parseStart).Nanoseconds()) / nanosecondsPerMillisecond)
	metrics.RecordUnitsPerRoster(len(parsed.Units))

	normalized := normalizer.Normalize(ctx, parsed)

	evalStart := time.Now()
	report, err := eng.Evaluate(ctx, normalized)
	if err != nil {
		return nil, err
	}
	metrics.RecordEvaluationDuration(float64(time.Since(evalStart).Nanoseconds()) / nanosecondsPerMillisecond)
	metrics.RecordRosterEvaluated()
	metrics.RecordStratagemsMatched(len(report.Results))
	recordDiagnostics(report.Diagnostics)
	s.evaluations.Add(1)

	for _, w := range report.Warnings {
		metrics.RecordPredicateFailure()
		s.logger.Warn(ctx, "condition evaluation failed", logger.String("detail", w))
	}

	matches := make([]MatchedStratagem, 0, len(report.Results))
	for _, r := range report.Results {
		card, ok := store.StratagemByID(ctx, r.StratagemID)
		if !ok {
			continue
		}
		matches = append(matches, MatchedStratagem{Stratagem: card, MatchedUnits: r.MatchedUnits})
	}

	s.logger.Debug(ctx, "roster evaluated",
		logger.String("roster", normalized.Name),
		logger.Strings("factions", normalized.FactionIDs),
		logger.Int("units", len(normalized.Units)),
		logger.Int("matched", len(matches)),
	)

	return &Evaluation{
		Roster:      normalized,
		Matches:     matches,
		Diagnostics: report.Diagnostics,
		Warnings:    report.Warnings,
		Version:     version,
	}, nil
}

// Stratagems lists reference cards, optionally filtered by faction (its
// ancestors included, matching evaluation semantics) and phase. Results are
// ordered by id and capped at the configured query limit.
func (s *Service) Stratagems(ctx context.Context, factionID, phase string, limit int) ([]model.Stratagem, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return nil, ErrNotStarted
	}
	store, normalizer, maxLimit := s.store, s.normalizer, s.maxQueryLimit
	s.mu.RUnlock()

	canonicalPhase := ""
	if phase != "" {
		canon, ok := model.CanonicalPhase(phase)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
		}
		canonicalPhase = canon
	}

	var list []model.Stratagem
	switch {
	case factionID != "":
		// Accept IDs, display names, and aliases alike, with the same
		// resolution rules the roster normalizer applies.
		id, ok := normalizer.ResolveTag(ctx, factionID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFaction, factionID)
		}
		chain := append([]string{id}, store.Ancestors(ctx, id)...)
		seen := make(map[string]struct{})
		for _, id := range chain {
			for _, st := range store.StratagemsForFaction(ctx, id) {
				if _, dup := seen[st.ID]; dup {
					continue
				}
				seen[st.ID] = struct{}{}
				list = append(list, st)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	case canonicalPhase != "":
		list = store.StratagemsForPhase(ctx, canonicalPhase)
	default:
		list = store.All(ctx)
	}

	if factionID != "" && canonicalPhase != "" {
		filtered := list[:0]
		for _, st := range list {
			if st.Phase == canonicalPhase {
				filtered = append(filtered, st)
			}
		}
		list = filtered
	}

	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Snapshot returns metadata about the loaded reference snapshot.
func (s *Service) Snapshot(ctx context.Context) (SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return SnapshotInfo{}, ErrNotStarted
	}
	return s.info, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"maxQueryLimit": s.maxQueryLimit,
	}

	if s.started {
		stats["snapshotVersion"] = s.info.Version
		stats["stratagems"] = s.info.Stratagems
		stats["factions"] = s.info.Factions
		stats["unitNames"] = s.info.UnitNames
		stats["skippedRows"] = s.info.Skipped
		stats["evaluations"] = int(s.evaluations.Load())

		// Update metrics
		metrics.UpdateSnapshotCounts(s.info.Stratagems, s.info.Factions, s.info.UnitNames)
	}

	return stats
}

// parseFailureReason folds a parse error onto a small metric label set.
func parseFailureReason(err error) string {
	switch {
	case errors.Is(err, roster.ErrUnsupportedSchema):
		return "schema"
	case errors.Is(err, roster.ErrMalformedDocument):
		return "malformed"
	default:
		return "other"
	}
}

func recordDiagnostics(d model.Diagnostics) {
	for range d.UnresolvedFactions {
		metrics.RecordUnresolvedFactionTag()
	}
	for range d.UnresolvedRenames {
		metrics.RecordUnresolvedUnitRename()
	}
	for range d.UnitsWithoutKeywords {
		metrics.RecordUnitWithoutKeywords()
	}
}
