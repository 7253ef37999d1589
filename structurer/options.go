package structurer

import "github.com/binstruct/structurer/boolformula"

// Option configures an Engine.
type Option func(*Engine)

// WithSharedHashCons makes the Engine intern formulas through u instead of a fresh per-engine
// Universe. Callers that structure many regions concurrently via BatchStructure and want formula
// pointers comparable across regions (e.g. tooling diffing reaching conditions between two
// functions) should share one Universe; the default is one Universe per Engine, so parallel
// workers never contend on its internal mutex.
func WithSharedHashCons(u *boolformula.Universe) Option {
	return func(e *Engine) {
		e.universe = u
	}
}
