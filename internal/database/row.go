package database

import "github.com/koustreak/sqlcontext/internal/errs"

// Result is a fully materialised result set with its column order.
type Result struct {
	Columns []string
	Rows    [][]any
}

// ScanAll reads every row and keeps the driver's column order, which a map
// cannot. ScanAll always closes rows.
func ScanAll(rows Rows) (*Result, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	res := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		dest, ptrs := scanTargets(len(columns))
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
		}
		res.Rows = append(res.Rows, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
	}
	return res, nil
}

// ScanRows reads all rows from the result set and returns them as a slice
// of maps, where each key is the column name and each value is the Go-native
// representation of the DB value.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows.
func ScanRows(rows Rows) ([]map[string]any, error) {
	res, err := ScanAll(rows)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(res.Rows))
	for _, r := range res.Rows {
		m := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			m[col] = r[i]
		}
		out = append(out, m)
	}
	return out, nil
}

// ScanStrings collects a single text column. It always closes rows.
func ScanStrings(rows Rows) ([]string, error) {
	defer rows.Close()

	var list []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan value", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
	}
	return list, nil
}

// scanTargets allocates scan targets as *any so the driver can write any type.
func scanTargets(n int) ([]any, []any) {
	dest := make([]any, n)
	ptrs := make([]any, n)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	return dest, ptrs
}
