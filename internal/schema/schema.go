// Package schema holds the normalised metadata model produced by the
// relational extractor and the compact text encoding rendered from it.
//
// Models are built fresh for every request and never mutated afterwards.
package schema

// SchemaInfo is an ordered list of tables plus a name index built once at
// construction. Use NewSchemaInfo so the index is populated.
type SchemaInfo struct {
	Name    string // empty means the connection's default schema
	Comment string
	Tables  []TableInfo

	byName map[string]int
}

// NewSchemaInfo builds a SchemaInfo and its name index.
func NewSchemaInfo(name string, tables []TableInfo) *SchemaInfo {
	s := &SchemaInfo{
		Name:   name,
		Tables: tables,
		byName: make(map[string]int, len(tables)),
	}
	for i, t := range tables {
		s.byName[t.Name] = i
	}
	return s
}

// Table looks a relation up by exact name.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.Tables[i], true
}

// DisplayName is the name used in encoded output.
func (s *SchemaInfo) DisplayName() string {
	if s.Name == "" {
		return "default"
	}
	return s.Name
}

// DatabaseInfo groups the extracted schemas of one configured database.
type DatabaseInfo struct {
	Identifier string
	DBType     string // optional discriminator, e.g. "sqlite"
	Schemas    []*SchemaInfo
}
