package database

// ReflectedTable is the raw catalog description of one relation, before
// filtering, type mapping or kind classification.
type ReflectedTable struct {
	Schema      string
	Name        string
	Comment     string
	Columns     []ReflectedColumn // catalog order
	PrimaryKey  []string          // constraint order
	ForeignKeys []ReflectedForeignKey

	// Indexes excludes the index backing the primary key.
	// IndexesKnown is false when the driver could not read indexes at all,
	// which leaves the per-column index and unique flags unknown.
	Indexes           []ReflectedIndex
	UniqueConstraints [][]string
	IndexesKnown      bool
}

// ReflectedColumn is one column as the catalog reports it.
type ReflectedColumn struct {
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	Comment       string
	Autoincrement string // "true", "false" or "auto"
	Computed      bool
	Identity      bool
	System        bool
	Constraints   []string // single-column constraint definitions, e.g. CHECK clauses
}

// ReflectedForeignKey is a (possibly composite) foreign-key constraint.
// Columns[i] references RefColumns[i].
type ReflectedForeignKey struct {
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnUpdate   string
	OnDelete   string
	Deferrable *bool
	Initially  string
}

// ReflectedIndex is a secondary index.
type ReflectedIndex struct {
	Name    string
	Columns []string
	Unique  bool
}

// Constraint kinds accepted by TableSet.AddConstraint.
const (
	ConstraintPrimaryKey = "p"
	ConstraintUnique     = "u"
	ConstraintForeignKey = "f"
	ConstraintCheck      = "c"
)

// ConstraintRow is one column of a constraint as a catalog query returns it.
// Composite constraints arrive as several rows sharing Table and Name, in
// key order.
type ConstraintRow struct {
	Table      string
	Name       string
	Kind       string
	Column     string
	RefSchema  string
	RefTable   string
	RefColumn  string
	OnUpdate   string
	OnDelete   string
	Deferrable *bool
	Initially  string
	Definition string
}

type conKey struct{ table, name string }

// TableSet accumulates ReflectedTables from row-per-attribute catalog
// queries while keeping first-seen order. Rows for tables never added are
// ignored.
type TableSet struct {
	order  []string
	byName map[string]*ReflectedTable

	fks        map[conKey]*ReflectedForeignKey
	fkOrder    []conKey
	uniques    map[conKey]int
	indexes    map[conKey]int
	checks     map[conKey]*ConstraintRow
	checkCols  map[conKey][]string
	checkOrder []conKey
}

// NewTableSet returns an empty set.
func NewTableSet() *TableSet {
	return &TableSet{
		byName:    make(map[string]*ReflectedTable),
		fks:       make(map[conKey]*ReflectedForeignKey),
		uniques:   make(map[conKey]int),
		indexes:   make(map[conKey]int),
		checks:    make(map[conKey]*ConstraintRow),
		checkCols: make(map[conKey][]string),
	}
}

// Add registers a table and returns it. Adding an existing name returns
// the existing entry unchanged.
func (s *TableSet) Add(schema, name string) *ReflectedTable {
	if t, ok := s.byName[name]; ok {
		return t
	}
	t := &ReflectedTable{Schema: schema, Name: name}
	s.byName[name] = t
	s.order = append(s.order, name)
	return t
}

// Get returns the named table, or nil when it was never added.
func (s *TableSet) Get(name string) *ReflectedTable {
	return s.byName[name]
}

// AddColumn appends a column to table in arrival order.
func (s *TableSet) AddColumn(table string, col ReflectedColumn) {
	if t := s.byName[table]; t != nil {
		t.Columns = append(t.Columns, col)
	}
}

// AddConstraint folds one constraint row into its table.
func (s *TableSet) AddConstraint(r ConstraintRow) {
	t := s.byName[r.Table]
	if t == nil {
		return
	}
	k := conKey{r.Table, r.Name}

	switch r.Kind {
	case ConstraintPrimaryKey:
		t.PrimaryKey = append(t.PrimaryKey, r.Column)

	case ConstraintUnique:
		i, ok := s.uniques[k]
		if !ok {
			t.UniqueConstraints = append(t.UniqueConstraints, nil)
			i = len(t.UniqueConstraints) - 1
			s.uniques[k] = i
		}
		t.UniqueConstraints[i] = append(t.UniqueConstraints[i], r.Column)

	case ConstraintForeignKey:
		fk, ok := s.fks[k]
		if !ok {
			fk = &ReflectedForeignKey{
				Name:       r.Name,
				RefSchema:  r.RefSchema,
				RefTable:   r.RefTable,
				OnUpdate:   r.OnUpdate,
				OnDelete:   r.OnDelete,
				Deferrable: r.Deferrable,
				Initially:  r.Initially,
			}
			s.fks[k] = fk
			s.fkOrder = append(s.fkOrder, k)
		}
		fk.Columns = append(fk.Columns, r.Column)
		fk.RefColumns = append(fk.RefColumns, r.RefColumn)

	case ConstraintCheck:
		if _, ok := s.checks[k]; !ok {
			row := r
			s.checks[k] = &row
			s.checkOrder = append(s.checkOrder, k)
		}
		s.checkCols[k] = append(s.checkCols[k], r.Column)
	}
}

// AddIndexColumn appends column to the named secondary index of table.
func (s *TableSet) AddIndexColumn(table, index string, unique bool, column string) {
	t := s.byName[table]
	if t == nil {
		return
	}
	k := conKey{table, index}
	i, ok := s.indexes[k]
	if !ok {
		t.Indexes = append(t.Indexes, ReflectedIndex{Name: index, Unique: unique})
		i = len(t.Indexes) - 1
		s.indexes[k] = i
	}
	t.Indexes[i].Columns = append(t.Indexes[i].Columns, column)
}

// MarkIndexesKnown sets IndexesKnown on every table.
func (s *TableSet) MarkIndexesKnown() {
	for _, t := range s.byName {
		t.IndexesKnown = true
	}
}

// Tables returns the accumulated tables in first-seen order, with foreign
// keys attached and single-column checks copied onto their column.
func (s *TableSet) Tables() []ReflectedTable {
	fks := make(map[string][]ReflectedForeignKey)
	for _, k := range s.fkOrder {
		fks[k.table] = append(fks[k.table], *s.fks[k])
	}
	checks := make(map[string]map[string][]string)
	for _, k := range s.checkOrder {
		cols := s.checkCols[k]
		if len(cols) != 1 {
			continue
		}
		if checks[k.table] == nil {
			checks[k.table] = make(map[string][]string)
		}
		checks[k.table][cols[0]] = append(checks[k.table][cols[0]], s.checks[k].Definition)
	}

	out := make([]ReflectedTable, 0, len(s.order))
	for _, name := range s.order {
		t := *s.byName[name]
		t.ForeignKeys = append(append([]ReflectedForeignKey(nil), t.ForeignKeys...), fks[name]...)
		if byCol := checks[name]; byCol != nil {
			cols := make([]ReflectedColumn, len(t.Columns))
			copy(cols, t.Columns)
			for i := range cols {
				if defs := byCol[cols[i].Name]; len(defs) > 0 {
					cols[i].Constraints = append(append([]string(nil), cols[i].Constraints...), defs...)
				}
			}
			t.Columns = cols
		}
		out = append(out, t)
	}
	return out
}
