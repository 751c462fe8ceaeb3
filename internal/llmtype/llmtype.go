// Package llmtype collapses native column types into a small set of
// categories that are cheap for a language model to read.
//
// Two mappers exist and they deliberately disagree on unknown input:
//
//   - Relational degrades gracefully: an unknown type is returned verbatim.
//   - Warehouse is a closed table: an unknown type is an
//     ErrKindUnsupportedType error.
package llmtype

import (
	"sort"
	"strings"
)

// Type is one of the twelve semantic categories.
type Type string

const (
	STR   Type = "STR"
	INT   Type = "INT"
	FLOAT Type = "FLOAT"
	DEC   Type = "DEC"
	DT    Type = "DT"
	TS    Type = "TS"
	DATE  Type = "DATE"
	TIME  Type = "TIME"
	BLOB  Type = "BLOB"
	BIN   Type = "BIN"
	BOOL  Type = "BOOL"
	NULL  Type = "NULL"
)

// All lists every category in declaration order.
var All = []Type{STR, INT, FLOAT, DEC, DT, TS, DATE, TIME, BLOB, BIN, BOOL, NULL}

func (t Type) String() string { return string(t) }

// Lower returns the lower-case spelling used by the warehouse encoding.
func (t Type) Lower() string { return strings.ToLower(string(t)) }

// Valid reports whether t is one of the twelve categories.
func (t Type) Valid() bool {
	for _, c := range All {
		if t == c {
			return true
		}
	}
	return false
}

// prefixTable is a literal lookup table with a longest-prefix fallback.
// It is built once and read-only afterwards.
type prefixTable struct {
	exact    map[string]Type
	prefixes []string // keys of exact, longest first
}

func newPrefixTable(m map[string]Type) *prefixTable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &prefixTable{exact: m, prefixes: keys}
}

func (p *prefixTable) lookup(name string) (Type, bool) {
	if t, ok := p.exact[name]; ok {
		return t, true
	}
	for _, k := range p.prefixes {
		if strings.HasPrefix(name, k) {
			return p.exact[k], true
		}
	}
	return "", false
}
