package llmtype

import (
	"regexp"
	"strings"
)

// relationalFamilies maps normalised type family names, as reported by
// Postgres, MySQL and SQLite catalogs, to their category.
var relationalFamilies = map[string]Type{
	// strings
	"string": STR, "text": STR, "unicode": STR, "unicodetext": STR,
	"varchar": STR, "nvarchar": STR, "char": STR, "nchar": STR, "clob": STR,
	"character": STR, "character varying": STR, "bpchar": STR, "name": STR, "citext": STR,
	"tinytext": STR, "mediumtext": STR, "longtext": STR, "varchar2": STR, "nvarchar2": STR,

	// integers
	"integer": INT, "int": INT, "smallint": INT, "bigint": INT, "tinyint": INT, "mediumint": INT,
	"int2": INT, "int4": INT, "int8": INT, "serial": INT, "smallserial": INT, "bigserial": INT,

	// approximate numerics
	"float": FLOAT, "double": FLOAT, "double precision": FLOAT, "real": FLOAT,
	"float4": FLOAT, "float8": FLOAT,

	// exact numerics
	"numeric": DEC, "decimal": DEC, "money": DEC,

	// temporal
	"datetime":                    DT,
	"timestamp":                   TS,
	"timestamp without time zone": TS,
	"timestamp with time zone":    TS,
	"timestamptz":                 TS,
	"date":                        DATE,
	"time":                        TIME,
	"time without time zone":      TIME,
	"time with time zone":         TIME,
	"timetz":                      TIME,

	// binary
	"largebinary": BLOB, "blob": BLOB, "bytea": BLOB,
	"tinyblob": BLOB, "mediumblob": BLOB, "longblob": BLOB,
	"binary": BIN, "varbinary": BIN,

	// boolean
	"boolean": BOOL, "bool": BOOL,

	// stored as text
	"enum": STR, "set": STR, "json": STR, "jsonb": STR, "uuid": STR, "array": STR,
	"pickletype": STR, "interval": STR, "xml": STR, "inet": STR, "cidr": STR,

	// explicit null
	"null": NULL,
}

var relationalTable = newPrefixTable(relationalFamilies)

var typeArgs = regexp.MustCompile(`\([^)]*\)`)

// Relational maps a native relational type string to its category.
// Unknown types are returned verbatim as the category.
func Relational(native string) Type {
	name := normalize(native)
	if name == "" {
		return Type(native)
	}
	if strings.HasSuffix(name, "[]") {
		return STR
	}
	if t, ok := relationalTable.lookup(name); ok {
		return t
	}
	return Type(native)
}

// normalize lower-cases a type string, drops length/precision arguments
// and collapses whitespace: "VARCHAR(120)" -> "varchar",
// "timestamp(6) with time zone" -> "timestamp with time zone".
func normalize(native string) string {
	s := strings.ToLower(strings.TrimSpace(native))
	s = typeArgs.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
