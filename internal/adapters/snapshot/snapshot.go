// Package snapshot loads reference-data snapshots: directories of
// pipe-delimited CSV files in the upstream export layout carrying factions,
// stratagems, the canonical unit vocabulary, per-card eligibility conditions
// and the alias/rename tables. Loading is tolerant: a malformed row is
// skipped, logged and counted, and never fails the rest of the snapshot.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/muster/internal/domain/eligibility"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Snapshot file names in the upstream export layout.
const (
	FileFactions   = "Factions.csv"
	FileStratagems = "Stratagems.csv"
	FileDatasheets = "Datasheets.csv"
	FileConditions = "Stratagem_conditions.csv"
	FileVersion    = "Last_update.csv"
	FileAliases    = "Faction_aliases.csv"
	FileRenames    = "Unit_renames.csv"
)

// invalidTypeMarkers flag stratagem rows that never apply to matched play
// (supplement, crusade and boarding-action cards). Such rows are dropped.
var invalidTypeMarkers = []string{
	"(Supplement)",
	"Crusher Stampede",
	"Crusade",
	"Fallen Angels",
	"Boarding Actions",
}

// Snapshot is one loaded reference-data set. Immutable after Load returns.
type Snapshot struct {
	// Version is the upstream export timestamp from Last_update.csv,
	// empty when the file is absent.
	Version  string
	LoadedAt time.Time

	Factions   []model.Faction
	Stratagems []model.Stratagem

	// UnitNames is the canonical unit vocabulary from Datasheets.csv in
	// document order, deduplicated case-insensitively.
	UnitNames []string

	// Aliases maps export faction spellings to canonical faction ids or
	// names. Renames maps export unit names to canonical datasheet names.
	// Both merge the embedded default tables with any snapshot-dir
	// overrides, overrides winning.
	Aliases map[string]string
	Renames map[string]string

	// Skipped counts rows dropped as malformed across all files.
	Skipped int
}

// Loader reads snapshots from a filesystem. Safe for repeated use.
type Loader struct {
	log           logger.Logger
	mergeDefaults bool
}

// NewLoader returns a Loader that merges the embedded default alias and
// rename tables into every snapshot it loads.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		log:           logger.Get().Named("snapshot"),
		mergeDefaults: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir loads the snapshot rooted at dir.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Snapshot, error) {
	return l.Load(ctx, os.DirFS(dir))
}

// Load reads one snapshot from fsys. Factions.csv and Stratagems.csv are
// required; every other file is optional. Individual malformed rows are
// skipped, logged and counted rather than failing the load.
func (l *Loader) Load(ctx context.Context, fsys fs.FS) (*Snapshot, error) {
	start := time.Now()
	snap := &Snapshot{LoadedAt: start.UTC()}

	snap.Version = l.loadVersion(ctx, fsys)
	if err := l.loadFactions(ctx, fsys, snap); err != nil {
		return nil, err
	}
	conds := l.loadConditions(ctx, fsys, snap)
	if err := l.loadStratagems(ctx, fsys, snap, conds); err != nil {
		return nil, err
	}
	l.loadUnitNames(ctx, fsys, snap)
	snap.Aliases = l.loadPairs(ctx, fsys, FileAliases, "alias", "faction_id")
	snap.Renames = l.loadPairs(ctx, fsys, FileRenames, "export_name", "canonical_name")

	metrics.RecordSnapshotLoadDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateSnapshotLoadedAt(start.Unix())
	metrics.UpdateSnapshotCounts(len(snap.Stratagems), len(snap.Factions), len(snap.UnitNames))

	l.log.Info(ctx, "snapshot loaded",
		logger.String("version", snap.Version),
		logger.Int("factions", len(snap.Factions)),
		logger.Int("stratagems", len(snap.Stratagems)),
		logger.Int("unit_names", len(snap.UnitNames)),
		logger.Int("skipped", snap.Skipped),
	)
	return snap, nil
}

func (l *Loader) loadVersion(ctx context.Context, fsys fs.FS) string {
	t, err := readTable(fsys, FileVersion)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn(ctx, "unreadable version file", logger.Error(err))
		}
		return ""
	}
	for _, row := range t.rows {
		if v := t.get(row, "last_update"); v != "" {
			return v
		}
	}
	return ""
}

func (l *Loader) loadFactions(ctx context.Context, fsys fs.FS, snap *Snapshot) error {
	t, err := readTable(fsys, FileFactions)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, FileFactions)
		}
		return err
	}

	seen := make(map[string]struct{}, len(t.rows))
	all := make([]model.Faction, 0, len(t.rows))
	for _, row := range t.rows {
		f := model.Faction{
			ID:       t.get(row, "id"),
			Name:     t.get(row, "name"),
			ParentID: t.get(row, "parent_id"),
		}
		if f.ID == "" || f.Name == "" {
			l.skipRow(ctx, snap, FileFactions, "missing id or name", row)
			continue
		}
		if _, dup := seen[f.ID]; dup {
			l.skipRow(ctx, snap, FileFactions, "duplicate id", row)
			continue
		}
		seen[f.ID] = struct{}{}
		all = append(all, f)
	}

	parents := make(map[string]string, len(all))
	for _, f := range all {
		parents[f.ID] = f.ParentID
	}
	for _, f := range all {
		if !validParentChain(f, parents) {
			l.skipRow(ctx, snap, FileFactions, "broken or cyclic parent chain", []string{f.ID})
			continue
		}
		snap.Factions = append(snap.Factions, f)
	}
	if len(snap.Factions) == 0 {
		return fmt.Errorf("%w: %s has no usable rows", ErrBadSnapshot, FileFactions)
	}
	return nil
}

// validParentChain reports whether every ancestor of f exists and the chain
// terminates without revisiting a faction.
func validParentChain(f model.Faction, parents map[string]string) bool {
	seen := map[string]struct{}{f.ID: {}}
	for cur := f.ParentID; cur != ""; {
		if _, cyclic := seen[cur]; cyclic {
			return false
		}
		next, ok := parents[cur]
		if !ok {
			return false
		}
		seen[cur] = struct{}{}
		cur = next
	}
	return true
}

// condition is one structured eligibility row awaiting its stratagem.
type condition struct {
	keywords   []string
	detachment string
	source     string
}

func (l *Loader) loadConditions(ctx context.Context, fsys fs.FS, snap *Snapshot) map[string]condition {
	out := make(map[string]condition)
	t, err := readTable(fsys, FileConditions)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn(ctx, "unreadable conditions file", logger.Error(err))
		}
		return out
	}
	for _, row := range t.rows {
		id := t.get(row, "stratagem_id")
		if id == "" {
			l.skipRow(ctx, snap, FileConditions, "missing stratagem_id", row)
			continue
		}
		out[id] = condition{
			keywords:   splitKeywords(t.get(row, "keywords")),
			detachment: t.get(row, "detachment"),
			source:     t.get(row, "expr"),
		}
	}
	return out
}

func (l *Loader) loadStratagems(ctx context.Context, fsys fs.FS, snap *Snapshot, conds map[string]condition) error {
	t, err := readTable(fsys, FileStratagems)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, FileStratagems)
		}
		return err
	}

	seen := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		id, name := t.get(row, "id"), t.get(row, "name")
		if id == "" || name == "" {
			l.skipRow(ctx, snap, FileStratagems, "missing id or name", row)
			continue
		}
		if _, dup := seen[id]; dup {
			l.skipRow(ctx, snap, FileStratagems, "duplicate id", row)
			continue
		}
		seen[id] = struct{}{}

		typ := t.get(row, "type")
		if invalidType(typ) {
			l.log.Debug(ctx, "dropping out-of-scope stratagem",
				logger.String("id", id),
				logger.String("type", typ),
			)
			continue
		}

		s := model.Stratagem{
			ID:          id,
			Name:        name,
			Type:        typ,
			Cost:        parseCost(t.get(row, "cp_cost")),
			Detachment:  t.get(row, "detachment"),
			Description: t.get(row, "description"),
			Legend:      t.get(row, "legend"),
		}
		phase, known := normalizePhase(t.get(row, "phase"))
		if !known {
			metrics.RecordMalformedReferenceEntry(FileStratagems)
			l.log.Warn(ctx, "unknown phase folded to any",
				logger.String("id", id),
				logger.String("phase", t.get(row, "phase")),
			)
		}
		s.Phase = phase
		for _, fid := range []string{t.get(row, "faction_id"), t.get(row, "subfaction_id")} {
			if fid != "" {
				s.FactionScope = append(s.FactionScope, fid)
			}
		}

		if c, ok := conds[id]; ok {
			pred, err := eligibility.Compile(c.keywords, c.detachment, c.source)
			if err != nil {
				metrics.RecordMalformedReferenceEntry(FileConditions)
				l.log.Warn(ctx, "bad condition expression, keeping structured parts",
					logger.String("stratagem", id),
					logger.Error(err),
				)
				pred = eligibility.New(c.keywords, c.detachment)
			}
			s.Eligibility = pred
		}
		snap.Stratagems = append(snap.Stratagems, s)
	}
	return nil
}

func (l *Loader) loadUnitNames(ctx context.Context, fsys fs.FS, snap *Snapshot) {
	t, err := readTable(fsys, FileDatasheets)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn(ctx, "unreadable datasheets file", logger.Error(err))
		}
		return
	}
	// Datasheet names legitimately repeat across factions; the vocabulary
	// keeps the first spelling.
	seen := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		name := t.get(row, "name")
		if name == "" {
			l.skipRow(ctx, snap, FileDatasheets, "missing name", row)
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		snap.UnitNames = append(snap.UnitNames, name)
	}
}

// loadPairs reads a two-column override table, layered over the embedded
// default of the same name when the loader merges defaults.
func (l *Loader) loadPairs(ctx context.Context, fsys fs.FS, name, keyCol, valCol string) map[string]string {
	out := make(map[string]string)
	if l.mergeDefaults {
		if t, err := readTable(defaultTablesFS, name); err == nil {
			for k, v := range t.pairs(keyCol, valCol) {
				out[k] = v
			}
		}
	}
	t, err := readTable(fsys, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn(ctx, "unreadable table",
				logger.String("file", name),
				logger.Error(err),
			)
		}
		return out
	}
	for k, v := range t.pairs(keyCol, valCol) {
		out[k] = v
	}
	return out
}

func (l *Loader) skipRow(ctx context.Context, snap *Snapshot, file, reason string, row []string) {
	snap.Skipped++
	metrics.RecordMalformedReferenceEntry(file)
	id := ""
	if len(row) > 0 {
		id = row[0]
	}
	l.log.Warn(ctx, "skipping reference row",
		logger.String("file", file),
		logger.String("reason", reason),
		logger.String("id", id),
	)
}

// parseCost extracts the leading integer of a cp_cost cell ("1", "2CP",
// "1/2" all cost their leading figure); anything else costs 0.
func parseCost(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func invalidType(typ string) bool {
	for _, marker := range invalidTypeMarkers {
		if strings.Contains(typ, marker) {
			return true
		}
	}
	return false
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
