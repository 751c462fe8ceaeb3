package schema

import "strings"

// Column constraint markers.
const (
	MarkPK  = "*PK"
	MarkUQ  = "*UQ"
	MarkNN  = "*NN"
	MarkIDX = "*IDX"
	MarkFK  = "*FK->"
)

const indent = "  "

// EncodeColumn renders one column as
// name:TYPE[*PK][*UQ][*NN][*IDX][*FK->Table.Column]...
//
// *IDX is dropped when *PK or *UQ is present since both imply an index.
func EncodeColumn(t *TableInfo, c *ColumnInfo) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte(':')
	sb.WriteString(string(c.LLMType))

	pk := t.IsPrimaryKey(c.Name)
	uq := c.IsUnique()
	if pk {
		sb.WriteString(MarkPK)
	}
	if uq {
		sb.WriteString(MarkUQ)
	}
	if !c.Nullable {
		sb.WriteString(MarkNN)
	}
	if c.IsIndexed() && !pk && !uq {
		sb.WriteString(MarkIDX)
	}
	for _, fk := range c.ForeignKeys {
		sb.WriteString(MarkFK)
		sb.WriteString(fk.Target)
	}
	return sb.String()
}

// EncodeTable renders a relation block:
//
//	Table Album(
//	  AlbumId:INT*PK*NN,
//	)
func EncodeTable(t *TableInfo) string {
	var sb strings.Builder
	sb.WriteString(t.Kind.Label())
	sb.WriteByte(' ')
	sb.WriteString(t.Name)
	sb.WriteString("(\n")
	for i := range t.Columns {
		sb.WriteString(indent)
		sb.WriteString(EncodeColumn(t, &t.Columns[i]))
		sb.WriteString(",\n")
	}
	sb.WriteByte(')')
	return sb.String()
}

// EncodeSchema renders every table of s inside a "Schema name(" block.
// An unnamed schema is rendered as "default".
func EncodeSchema(s *SchemaInfo) string {
	blocks := make([]string, 0, len(s.Tables))
	for i := range s.Tables {
		blocks = append(blocks, indentLines(EncodeTable(&s.Tables[i]), indent))
	}
	return wrap("Schema "+s.DisplayName(), blocks)
}

// EncodeDatabase renders all schemas of d. The header carries the database
// type when one is known: "sqlite Database chinook(".
func EncodeDatabase(d *DatabaseInfo) string {
	blocks := make([]string, 0, len(d.Schemas))
	for _, s := range d.Schemas {
		blocks = append(blocks, indentLines(EncodeSchema(s), indent))
	}
	header := "Database " + d.Identifier
	if d.DBType != "" {
		header = d.DBType + " " + header
	}
	return wrap(header, blocks)
}

func wrap(header string, blocks []string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("(\n")
	for _, b := range blocks {
		sb.WriteString(b)
		sb.WriteByte('\n')
	}
	sb.WriteByte(')')
	return sb.String()
}

// indentLines prefixes every non-empty line of s.
func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
