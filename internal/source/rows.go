package source

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
)

// readTable selects every row of table and returns them as records.
func readTable(ctx context.Context, db dialect.DBTX, d dialect.Dialect, table string) ([]core.Record, error) {
	rows, err := db.QueryContext(ctx, dialect.SelectAllSQL(d, table))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	var records []core.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		rec := make(core.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalize(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return records, nil
}

// normalize converts driver-specific scalars into the Record value set.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
