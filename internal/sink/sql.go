package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/txnguard/txnguard/internal/dbconn"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// DefaultTable is the table flagged rows are written to.
const DefaultTable = "flagged_transactions"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink inserts flagged rows into a table, creating the table and its
// indexes if they do not exist. All rows go in one transaction.
type SQLSink struct {
	Dialect dbconn.Dialect
	DSN     string
	Table   string
}

// NewSQLSink creates a SQL sink. An empty table name uses DefaultTable.
func NewSQLSink(dialect dbconn.Dialect, dsn, table string) (*SQLSink, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig,
			fmt.Sprintf("invalid output table name %q", table), nil)
	}
	return &SQLSink{Dialect: dialect, DSN: dsn, Table: table}, nil
}

// Describe implements Sink.
func (s *SQLSink) Describe() string {
	return string(s.Dialect) + ":" + s.Table
}

// Write implements Sink.
func (s *SQLSink) Write(ctx context.Context, rows []types.Transaction) error {
	db, err := dbconn.Open(ctx, s.Dialect, s.DSN)
	if err != nil {
		return tgerrors.NewOutputError("failed to open output database", err)
	}
	defer db.Close()
	return s.WriteDB(ctx, db, rows)
}

// WriteDB writes rows using an open database.
func (s *SQLSink) WriteDB(ctx context.Context, db *sql.DB, rows []types.Transaction) error {
	schema := types.OutputSchema()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return tgerrors.NewOutputError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.ddl(schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return tgerrors.NewOutputError("failed to create output table", err)
		}
	}

	cols := schema.ColumnNames()
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Table, strings.Join(cols, ", "), s.Dialect.Placeholders(len(cols)))
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return tgerrors.NewOutputError("failed to prepare insert statement", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		fields := Fields(row)
		args := make([]interface{}, len(fields))
		for j, f := range fields {
			args[j] = f
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return tgerrors.NewOutputError(fmt.Sprintf("failed to insert row %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return tgerrors.NewOutputError("failed to commit output", err)
	}
	return nil
}

// ddl returns the statements creating the output table and its indexes.
func (s *SQLSink) ddl(schema types.Schema) []string {
	defs := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		def := c.Name + " " + c.Type
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Table, strings.Join(defs, ", ")),
	}
	for _, idx := range schema.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s ON %s (%s)",
			s.Table, idx.Name, s.Table, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}
