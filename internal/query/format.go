package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
)

// Markdown renders res as a pipe table with the column names as header.
func Markdown(res *database.Result) (string, error) {
	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for n, r := range res.Rows {
		if len(r) != len(res.Columns) {
			return "", errs.Newf(errs.ErrKindInvalidInput, "row %d has %d values for %d columns", n+1, len(r), len(res.Columns))
		}
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = FormatValue(v)
		}
		t.AppendRow(row)
	}

	return t.RenderMarkdown(), nil
}

// FormatValue renders one cell. NULL is empty and floats keep four
// decimals.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 4, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', 4, 64)
	case [16]byte: // pgx decodes uuid columns to raw bytes
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
