package warehouse

import (
	"strconv"
	"strings"
)

// Column markers.
const (
	MarkDK = "*DK"
	MarkSK = "*SK-"
	MarkNN = "*NN"
)

const indent = "    "

// EncodeColumn renders name:type[*DK][*SK-n][*NN]*encoding with the
// category in lower case. The encoding is always present.
func EncodeColumn(c *Column) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte(':')
	sb.WriteString(c.LLMType.Lower())
	if c.DistKey {
		sb.WriteString(MarkDK)
	}
	if c.SortKey() {
		sb.WriteString(MarkSK)
		sb.WriteString(strconv.Itoa(c.SortKeyPosition))
	}
	if c.NotNull {
		sb.WriteString(MarkNN)
	}
	sb.WriteByte('*')
	sb.WriteString(c.Encoding)
	return sb.String()
}

// EncodeTable renders
//
//	Table users KEY Distribution Style (
//	    user_id:str*DK*NN*lzo,
//	)
func EncodeTable(t *Table) string {
	lines := make([]string, 0, len(t.Columns))
	for i := range t.Columns {
		lines = append(lines, EncodeColumn(&t.Columns[i]))
	}
	return block("Table "+t.Name+" "+t.DistStyle+" Distribution Style", lines)
}

// EncodeSchema renders every table of s, each followed by a comma.
func EncodeSchema(s *Schema) string {
	blocks := make([]string, 0, len(s.Tables))
	for i := range s.Tables {
		blocks = append(blocks, EncodeTable(&s.Tables[i]))
	}
	return block("Schema "+s.Name, blocks)
}

// EncodeDatabase renders every schema of d under "<db_type> Database <id> (".
func EncodeDatabase(d *Database) string {
	blocks := make([]string, 0, len(d.Schemas))
	for i := range d.Schemas {
		blocks = append(blocks, EncodeSchema(&d.Schemas[i]))
	}
	header := "Database " + d.Identifier
	if d.DBType != "" {
		header = d.DBType + " " + header
	}
	return block(header, blocks)
}

// block writes header, then each item indented and comma-terminated, then
// the closing parenthesis.
func block(header string, items []string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(" (\n")
	for _, item := range items {
		lines := strings.Split(item, "\n")
		for i, l := range lines {
			sb.WriteString(indent)
			sb.WriteString(l)
			if i == len(lines)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
