// Package request normalizes search parameters shared by every search operation.
package request

import (
	"strings"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// Search parameter limits.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// Limits bounds topK values. The zero value uses the package defaults.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// TopK normalizes a requested topK: non-positive means default, large values are capped.
func (l Limits) TopK(k int) int {
	def, maxK := l.DefaultTopK, l.MaxTopK
	if def <= 0 {
		def = DefaultTopK
	}
	if maxK <= 0 {
		maxK = MaxTopK
	}
	if k <= 0 {
		k = def
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// Scope selects the collections covered by a unified search.
type Scope string

// Unified search scopes.
const (
	ScopeAll   Scope = "all"
	ScopePaper Scope = "paper"
	ScopeNote  Scope = "note"
)

// ParseScope reads a scope; empty means all. Unknown values are kept as-is and match nothing.
func ParseScope(s string) Scope {
	s = strings.TrimSpace(s)
	if s == "" {
		return ScopeAll
	}
	return Scope(s)
}

// Includes reports whether the scope selects the kind.
func (s Scope) Includes(kind entity.Kind) bool {
	switch s {
	case ScopeAll:
		return kind == entity.Paper || kind == entity.Note
	case ScopePaper:
		return kind == entity.Paper
	case ScopeNote:
		return kind == entity.Note
	}
	return false
}
