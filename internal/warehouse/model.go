// Package warehouse extracts and encodes Amazon Redshift metadata. Redshift
// has no enforced keys, so its model carries distribution and sort keys
// instead of primary and foreign keys.
package warehouse

import "github.com/koustreak/sqlcontext/internal/llmtype"

// DBType is the database type tag of every warehouse database.
const DBType = "aws_redshift"

// Column describes a single warehouse column.
type Column struct {
	Name            string
	FullName        string // table.column
	Type            string // native type, e.g. "character varying(256)"
	LLMType         llmtype.Type
	DistKey         bool
	SortKeyPosition int // 1-based; 0 when not part of the sort key
	Encoding        string
	NotNull         bool
}

// SortKey reports whether the column is part of the sort key.
func (c *Column) SortKey() bool { return c.SortKeyPosition > 0 }

// Table is a warehouse table. DistStyle is EVEN, KEY, ALL or one of the
// AUTO(...) variants.
type Table struct {
	Name      string
	FullName  string // schema.table
	DistStyle string
	Owner     string
	Columns   []Column
}

// Schema is one namespace and the tables kept by its filter.
type Schema struct {
	Name    string
	Comment string
	Tables  []Table
}

// Table looks a table up by exact name.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Database is every non-system schema of one warehouse database.
type Database struct {
	Identifier string
	DBType     string
	Schemas    []Schema
}

// Schema looks a schema up by exact name.
func (d *Database) Schema(name string) (*Schema, bool) {
	for i := range d.Schemas {
		if d.Schemas[i].Name == name {
			return &d.Schemas[i], true
		}
	}
	return nil, false
}
