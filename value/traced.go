// SPDX-License-Identifier: Apache-2.0
package value

import "github.com/sentrie-sh/saplpdp/ast"

// Traced pairs a Value with the source locations that contributed to it, as
// carried by every stream emission to support coverage and diagnostics
// (spec.md §3 - TracedValue).
type Traced struct {
	Value     Value
	Locations []ast.Location
}

func NewTraced(v Value, locs ...ast.Location) Traced {
	return Traced{Value: v, Locations: locs}
}

// WithLocation returns a copy of t with loc appended.
func (t Traced) WithLocation(loc ast.Location) Traced {
	locs := make([]ast.Location, len(t.Locations), len(t.Locations)+1)
	copy(locs, t.Locations)
	locs = append(locs, loc)
	return Traced{Value: t.Value, Locations: locs}
}
