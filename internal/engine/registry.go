package engine

import "gungnir/internal/common"

// Registry maps symbol ids to their immutable specifications. Specs never
// change once registered; the risk and matching paths read them freely.
type Registry struct {
	specs map[common.SymbolID]*common.SymbolSpec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[common.SymbolID]*common.SymbolSpec)}
}

func (r *Registry) Get(id common.SymbolID) (*common.SymbolSpec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// Add registers a batch atomically: if any id is already known, repeats
// within the batch, or any spec is of an unsupported kind, nothing is
// registered.
func (r *Registry) Add(specs []common.SymbolSpec) common.ResultCode {
	seen := make(map[common.SymbolID]struct{}, len(specs))
	for _, s := range specs {
		if s.Kind != common.CurrencyPair {
			return common.ResultMalformed
		}
		if _, ok := r.specs[s.ID]; ok {
			return common.ResultDuplicateSymbol
		}
		if _, ok := seen[s.ID]; ok {
			return common.ResultDuplicateSymbol
		}
		seen[s.ID] = struct{}{}
	}
	for _, s := range specs {
		spec := s
		r.specs[s.ID] = &spec
	}
	return common.ResultSuccess
}
