package delegate

import (
	"caseline/pkg/domain"
)

// Registry maps jurisdiction codes to their delegates. It is built once per
// pipeline run and never mutated afterwards, so concurrent lookups need no
// synchronization.
type Registry struct {
	delegates map[domain.JurisdictionCode]Delegate
	fallback  Delegate
}

// NewRegistry builds the registry with every recognized jurisdiction
// registered. Registration is closed once this returns.
func NewRegistry() *Registry {
	r := &Registry{
		delegates: make(map[domain.JurisdictionCode]Delegate),
		fallback:  build("DEFAULT", nil),
	}
	for code, override := range jurisdictionOverrides {
		r.delegates[code] = build(string(code), override)
	}
	return r
}

// Resolve returns the delegate for the code and whether the code was
// recognized. Unrecognized codes get the default delegate with baseline
// behavior; the caller surfaces that as a warning, never an error.
func (r *Registry) Resolve(code domain.JurisdictionCode) (Delegate, bool) {
	if d, ok := r.delegates[code.Canonical()]; ok {
		return d, true
	}
	return r.fallback, false
}

// Default returns the fallback delegate.
func (r *Registry) Default() Delegate { return r.fallback }

// Codes returns the recognized jurisdiction codes, for observability.
func (r *Registry) Codes() []domain.JurisdictionCode {
	codes := make([]domain.JurisdictionCode, 0, len(r.delegates))
	for code := range r.delegates {
		codes = append(codes, code)
	}
	return codes
}

// jurisdictionOverrides is the static registration table. Adding a
// jurisdiction means adding an entry here; the engine itself never branches
// on a code.
var jurisdictionOverrides = map[domain.JurisdictionCode]func(*Delegate){
	"US-TN": usTN,
	"US-MO": usMO,
	"US-ND": usND,
	"US-IX": usIX,
}
