package snapshot

import "github.com/okian/muster/pkg/logger"

// Option configures a Loader.
type Option func(*Loader)

// WithLogger overrides the default named logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithoutDefaultTables disables merging the embedded alias/rename tables,
// leaving only what the snapshot directory provides.
func WithoutDefaultTables() Option {
	return func(l *Loader) {
		l.mergeDefaults = false
	}
}
