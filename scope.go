package medlock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Scope grammar:
//
//	read:all | *                 every record
//	read:counter:<n>[,<n>...]    the listed counters
//	read:meta:<substring>        records whose metadata contains substring
const (
	ScopeAll        = "read:all"
	scopeWildcard   = "*"
	scopeCounterPfx = "read:counter:"
	scopeMetaPfx    = "read:meta:"
)

type scopeKind int

const (
	scopeKindAll scopeKind = iota
	scopeKindCounters
	scopeKindMeta
)

// Scope is a parsed access scope.
type Scope struct {
	raw      string
	kind     scopeKind
	counters map[uint8]struct{}
	meta     string
}

// ParseScope validates s against the scope grammar.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return Scope{}, fmt.Errorf("%w: scope is empty", ErrInvalidFormat)
	}
	if len(s) > MaxScopeLength {
		return Scope{}, fmt.Errorf("%w: scope exceeds %d bytes", ErrInvalidFormat, MaxScopeLength)
	}

	switch {
	case s == ScopeAll || s == scopeWildcard:
		return Scope{raw: s, kind: scopeKindAll}, nil

	case strings.HasPrefix(s, scopeCounterPfx):
		list := strings.TrimPrefix(s, scopeCounterPfx)
		counters := make(map[uint8]struct{})
		for _, part := range strings.Split(list, ",") {
			n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
			if err != nil {
				return Scope{}, fmt.Errorf("%w: scope counter %q", ErrInvalidFormat, part)
			}
			counters[uint8(n)] = struct{}{}
		}
		return Scope{raw: s, kind: scopeKindCounters, counters: counters}, nil

	case strings.HasPrefix(s, scopeMetaPfx):
		meta := strings.TrimPrefix(s, scopeMetaPfx)
		if meta == "" {
			return Scope{}, fmt.Errorf("%w: scope metadata filter is empty", ErrInvalidFormat)
		}
		return Scope{raw: s, kind: scopeKindMeta, meta: meta}, nil
	}
	return Scope{}, fmt.Errorf("%w: unknown scope %q", ErrInvalidFormat, s)
}

// ScopeCounters builds a read:counter scope.
func ScopeCounters(counters ...uint8) string {
	sorted := append([]uint8(nil), counters...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = strconv.Itoa(int(c))
	}
	return scopeCounterPfx + strings.Join(parts, ",")
}

// ScopeMetadata builds a read:meta scope.
func ScopeMetadata(substring string) string {
	return scopeMetaPfx + substring
}

func (s Scope) String() string { return s.raw }

// Allows reports whether rec falls inside the scope.
func (s Scope) Allows(rec Record) bool {
	switch s.kind {
	case scopeKindAll:
		return true
	case scopeKindCounters:
		_, ok := s.counters[rec.Counter]
		return ok
	case scopeKindMeta:
		return strings.Contains(rec.Metadata, s.meta)
	}
	return false
}
