package llmtype

import "github.com/koustreak/sqlcontext/internal/errs"

// warehouseTypes is the closed set of Redshift type names as printed by
// format_type().
var warehouseTypes = map[string]Type{
	"smallint":         INT,
	"integer":          INT,
	"bigint":           INT,
	"real":             FLOAT,
	"double precision": FLOAT,
	"numeric":          DEC,
	"decimal":          DEC,

	"character":         STR,
	"character varying": STR,
	"char":              STR,
	"varchar":           STR,
	"text":              STR,

	"date":                        DATE,
	"time without time zone":      TIME,
	"time with time zone":         TIME,
	"timestamp without time zone": TS,
	"timestamp with time zone":    TS,
	"interval year to month":      DT,
	"interval day to second":      DT,

	"boolean": BOOL,

	"super":     STR,
	"hllsketch": STR,
	"varbyte":   BLOB,
	"geometry":  STR,
	"geography": STR,
}

var warehouseTable = newPrefixTable(warehouseTypes)

// Warehouse maps a Redshift type name to its category. Lookup is exact
// first, then the longest known name that prefixes native
// ("character varying(256)" -> STR). Anything else fails with
// ErrKindUnsupportedType.
func Warehouse(native string) (Type, error) {
	if t, ok := warehouseTable.lookup(native); ok {
		return t, nil
	}
	return "", errs.Newf(errs.ErrKindUnsupportedType, "unsupported Redshift type: %s", native)
}
