package schema

import "github.com/koustreak/sqlcontext/internal/llmtype"

// ObjectKind classifies a relation. The three kinds are mutually exclusive.
type ObjectKind string

const (
	KindTable            ObjectKind = "table"
	KindView             ObjectKind = "view"
	KindMaterializedView ObjectKind = "materialized_view"
)

// Label is the word used for the kind in encoded output.
func (k ObjectKind) Label() string {
	switch k {
	case KindView:
		return "View"
	case KindMaterializedView:
		return "MaterializedView"
	default:
		return "Table"
	}
}

// ForeignKeyInfo is one outgoing reference from a column.
type ForeignKeyInfo struct {
	Target     string // "Table.Column"
	OnUpdate   string
	OnDelete   string
	Deferrable *bool
	Initially  string
}

// ColumnInfo describes a single column.
//
// Index and Unique are tri-state: nil means the driver did not say, and an
// unknown flag never produces a marker.
type ColumnInfo struct {
	Name          string
	FullName      string // "{table}.{column}"
	Type          string // native type as reported by the catalog
	LLMType       llmtype.Type
	Nullable      bool
	Index         *bool
	Unique        *bool
	System        bool
	Comment       string
	Autoincrement string
	Constraints   []string
	ForeignKeys   []ForeignKeyInfo
	Computed      bool
	Identity      bool
}

// IsIndexed reports a known-true index flag.
func (c *ColumnInfo) IsIndexed() bool { return isTrue(c.Index) }

// IsUnique reports a known-true unique flag.
func (c *ColumnInfo) IsUnique() bool { return isTrue(c.Unique) }

// TableInfo describes a table, view or materialized view.
// Columns keep the native enumeration order.
type TableInfo struct {
	Kind        ObjectKind
	Name        string
	FullName    string
	Comment     string
	PrimaryKey  []string
	ForeignKeys []ForeignKeyInfo
	Columns     []ColumnInfo
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableInfo) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

// Bool returns a pointer to b, for populating tri-state flags.
func Bool(b bool) *bool { return &b }

func isTrue(b *bool) bool { return b != nil && *b }
