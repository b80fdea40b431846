package normalize

import "strings"

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithFactionAliases installs the alias table mapping raw roster tags to
// canonical faction IDs or names. Keys are folded to lower case; lookups
// happen on the lower-cased, prefix-stripped tag.
func WithFactionAliases(aliases map[string]string) Option {
	return func(n *Normalizer) {
		for alias, target := range aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" || target == "" {
				continue
			}
			n.aliases[key] = target
		}
	}
}

// WithUnitRenames installs the exact-match unit rename table
// (export name -> canonical name).
func WithUnitRenames(renames map[string]string) Option {
	return func(n *Normalizer) {
		for from, to := range renames {
			if from == "" || to == "" {
				continue
			}
			n.renames[from] = to
		}
	}
}

// WithUnitVocabulary installs the canonical unit vocabulary membership
// check. Units whose canonical name misses the vocabulary are flagged, not
// renamed.
func WithUnitVocabulary(contains func(string) bool) Option {
	return func(n *Normalizer) {
		n.vocab = contains
	}
}
