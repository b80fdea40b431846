package roster

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithNonUnitNames adds selection names to skip during unit extraction, on
// top of the built-in bookkeeping names.
func WithNonUnitNames(names ...string) Option {
	return func(p *Parser) {
		for _, n := range names {
			if n != "" {
				p.nonUnit[n] = struct{}{}
			}
		}
	}
}
