package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/txnguard/txnguard/internal/dbconn"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
)

// DefaultQuery selects the input columns from a transactions table.
const DefaultQuery = "SELECT user_id, timestamp, merchant_name, amount FROM transactions"

// SQLSource reads records with a query returning user_id, timestamp (epoch
// seconds), merchant_name and amount, in that column order. Rows are taken
// in the order the query returns them; add ORDER BY for a stable order.
type SQLSource struct {
	Dialect dbconn.Dialect
	DSN     string
	Query   string
}

// NewSQLSource creates a SQL source. An empty query uses DefaultQuery.
func NewSQLSource(dialect dbconn.Dialect, dsn, query string) *SQLSource {
	if query == "" {
		query = DefaultQuery
	}
	return &SQLSource{Dialect: dialect, DSN: dsn, Query: query}
}

// Describe implements Source.
func (s *SQLSource) Describe() string {
	return string(s.Dialect) + ":" + s.Query
}

// Read implements Source.
func (s *SQLSource) Read(ctx context.Context) ([]Record, error) {
	db, err := dbconn.Open(ctx, s.Dialect, s.DSN)
	if err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed, "failed to open input database", err)
	}
	defer db.Close()
	return ReadRows(ctx, db, s.Query)
}

// ReadRows runs query on db and returns its rows as records. NULL columns
// become empty fields and are reported by Parse.
func ReadRows(ctx context.Context, db *sql.DB, query string) ([]Record, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed, "input query failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed, "failed to read input columns", err)
	}
	if len(cols) != 4 {
		return nil, tgerrors.NewInputError(tgerrors.CodeBadHeader,
			fmt.Sprintf("input query must return 4 columns, got %d", len(cols)))
	}

	var records []Record
	for rows.Next() {
		var user, ts, merchant, amount sql.NullString
		if err := rows.Scan(&user, &ts, &merchant, &amount); err != nil {
			return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed,
				fmt.Sprintf("failed to scan record %d", len(records)), err)
		}
		records = append(records, Record{
			RowIndex:     len(records),
			UserID:       user.String,
			Timestamp:    ts.String,
			MerchantName: merchant.String,
			Amount:       amount.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed, "failed to iterate input rows", err)
	}
	return records, nil
}
