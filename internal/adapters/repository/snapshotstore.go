package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/muster/internal/adapters/snapshot"
	"github.com/okian/muster/internal/domain/model"
)

// SnapshotStore is the immutable index over one reference snapshot.
//
// Stratagems are held sorted by id; the per-faction and per-phase buckets
// store positions into that slice, so every query yields id order without
// re-sorting. Generic and faction-scoped buckets are disjoint.
type SnapshotStore struct {
	version        string
	stratagems     []model.Stratagem
	byScope        map[string][]int
	byPhase        map[string][]int
	generic        []int
	factionsByID   map[string]model.Faction
	factionsByName map[string]model.Faction
	parents        map[string]string
	unitNames      map[string]struct{}
}

// New builds the index from a loaded snapshot.
func New(snap *snapshot.Snapshot, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		version:        snap.Version,
		byScope:        make(map[string][]int),
		byPhase:        make(map[string][]int),
		factionsByID:   make(map[string]model.Faction, len(snap.Factions)),
		factionsByName: make(map[string]model.Faction, len(snap.Factions)),
		parents:        make(map[string]string, len(snap.Factions)),
		unitNames:      make(map[string]struct{}, len(snap.UnitNames)),
	}

	for _, f := range snap.Factions {
		s.factionsByID[f.ID] = f
		s.factionsByName[strings.ToLower(f.Name)] = f
		if f.ParentID != "" {
			s.parents[f.ID] = f.ParentID
		}
	}
	for _, name := range snap.UnitNames {
		s.unitNames[strings.ToLower(name)] = struct{}{}
	}

	s.stratagems = make([]model.Stratagem, len(snap.Stratagems))
	copy(s.stratagems, snap.Stratagems)
	sort.Slice(s.stratagems, func(i, j int) bool {
		return s.stratagems[i].ID < s.stratagems[j].ID
	})
	for i, st := range s.stratagems {
		if st.Generic() {
			s.generic = append(s.generic, i)
		} else {
			seen := make(map[string]struct{}, len(st.FactionScope))
			for _, fid := range st.FactionScope {
				if _, dup := seen[fid]; dup {
					continue
				}
				seen[fid] = struct{}{}
				s.byScope[fid] = append(s.byScope[fid], i)
			}
		}
		s.byPhase[st.Phase] = append(s.byPhase[st.Phase], i)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StratagemsForFaction implements Store.StratagemsForFaction by merging the
// faction's bucket with the generic pool, both already in id order.
func (s *SnapshotStore) StratagemsForFaction(ctx context.Context, factionID string) []model.Stratagem {
	scoped := s.byScope[factionID]
	out := make([]model.Stratagem, 0, len(scoped)+len(s.generic))
	i, j := 0, 0
	for i < len(scoped) || j < len(s.generic) {
		if j >= len(s.generic) || (i < len(scoped) && scoped[i] < s.generic[j]) {
			out = append(out, s.stratagems[scoped[i]])
			i++
			continue
		}
		out = append(out, s.stratagems[s.generic[j]])
		j++
	}
	return out
}

// StratagemsForPhase implements Store.StratagemsForPhase.
func (s *SnapshotStore) StratagemsForPhase(ctx context.Context, phase string) []model.Stratagem {
	canonical, ok := model.CanonicalPhase(phase)
	if !ok {
		return nil
	}
	bucket := s.byPhase[canonical]
	out := make([]model.Stratagem, 0, len(bucket))
	for _, i := range bucket {
		out = append(out, s.stratagems[i])
	}
	return out
}

// StratagemByID implements Store.StratagemByID with a binary search over
// the sorted slice.
func (s *SnapshotStore) StratagemByID(ctx context.Context, id string) (model.Stratagem, bool) {
	i := sort.Search(len(s.stratagems), func(i int) bool {
		return s.stratagems[i].ID >= id
	})
	if i < len(s.stratagems) && s.stratagems[i].ID == id {
		return s.stratagems[i], true
	}
	return model.Stratagem{}, false
}

// All implements Store.All.
func (s *SnapshotStore) All(ctx context.Context) []model.Stratagem {
	out := make([]model.Stratagem, len(s.stratagems))
	copy(out, s.stratagems)
	return out
}

// FactionByID implements Store.FactionByID.
func (s *SnapshotStore) FactionByID(ctx context.Context, id string) (model.Faction, bool) {
	f, ok := s.factionsByID[id]
	return f, ok
}

// FactionByName implements Store.FactionByName.
func (s *SnapshotStore) FactionByName(ctx context.Context, name string) (model.Faction, bool) {
	f, ok := s.factionsByName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Ancestors implements Store.Ancestors. The loader rejects cyclic parent
// chains; the visited guard covers snapshots built by hand.
func (s *SnapshotStore) Ancestors(ctx context.Context, id string) []string {
	var chain []string
	visited := map[string]struct{}{id: {}}
	for cur := s.parents[id]; cur != ""; cur = s.parents[cur] {
		if _, again := visited[cur]; again {
			break
		}
		visited[cur] = struct{}{}
		chain = append(chain, cur)
	}
	return chain
}

// HasUnitName implements Store.HasUnitName.
func (s *SnapshotStore) HasUnitName(ctx context.Context, name string) bool {
	_, ok := s.unitNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Generic implements Store.Generic.
func (s *SnapshotStore) Generic(ctx context.Context) []model.Stratagem {
	out := make([]model.Stratagem, 0, len(s.generic))
	for _, i := range s.generic {
		out = append(out, s.stratagems[i])
	}
	return out
}

// Count implements Store.Count.
func (s *SnapshotStore) Count(ctx context.Context) int {
	return len(s.stratagems)
}

// Version implements Store.Version.
func (s *SnapshotStore) Version(ctx context.Context) string {
	return s.version
}
