package repository

import "strings"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithUnitNames supplements the canonical unit vocabulary with names the
// snapshot does not carry, such as legends datasheets.
func WithUnitNames(names ...string) Option {
	return func(s *SnapshotStore) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				s.unitNames[strings.ToLower(n)] = struct{}{}
			}
		}
	}
}
