package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txnguard/txnguard/internal/dbconn"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

func flaggedRows() []types.Transaction {
	return []types.Transaction{
		{
			Ordinal:      0,
			UserID:       "1001",
			Timestamp:    time.Unix(1713182400, 0).UTC(),
			MerchantName: "Crypto Exchange",
			Amount:       decimal.RequireFromString("2500.005"),
			FraudReason:  "blacklisted merchant",
		},
		{
			Ordinal:      4,
			UserID:       "1002",
			Timestamp:    time.Unix(1713186000, 0).UTC(),
			MerchantName: "Jewelry Store, Downtown",
			Amount:       decimal.RequireFromString("1000.01"),
			FraudReason:  "Jewelry Store, Downtown txn > $1000 | unusual hour",
		},
	}
}

func readCSV(t *testing.T, path string, compressed bool) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r = csv.NewReader(f)
	if compressed {
		r = csv.NewReader(snappy.NewReader(f))
	}
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestFields(t *testing.T) {
	got := Fields(flaggedRows()[0])
	assert.Equal(t, []string{"1001", "2024-04-15 12:00:00", "Crypto Exchange", "2500.005", "blacklisted merchant"}, got)
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "flagged_transactions.csv")
	s := NewCSVSink(path, false)
	require.NoError(t, s.Write(context.Background(), flaggedRows()))

	records := readCSV(t, path, false)
	require.Len(t, records, 3)
	assert.Equal(t, types.OutputSchema().ColumnNames(), records[0])
	assert.Equal(t, "Jewelry Store, Downtown", records[2][2])
	assert.Equal(t, "Jewelry Store, Downtown txn > $1000 | unusual hour", records[2][4])

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be gone")
}

func TestCSVSinkSnappy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.csv.sz")
	s := NewCSVSink(path, false)
	assert.True(t, s.Snappy)
	require.NoError(t, s.Write(context.Background(), flaggedRows()))

	records := readCSV(t, path, true)
	require.Len(t, records, 3)
	assert.Equal(t, "1002", records[2][0])
}

func TestCSVSinkEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.csv")
	require.NoError(t, NewCSVSink(path, false).Write(context.Background(), nil))

	records := readCSV(t, path, false)
	require.Len(t, records, 1, "header only")
}

func TestSQLSinkSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	s, err := NewSQLSink(dbconn.SQLite, path, "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:"+DefaultTable, s.Describe())

	require.NoError(t, s.Write(context.Background(), flaggedRows()))
	// Writing again appends to the existing table.
	require.NoError(t, s.Write(context.Background(), flaggedRows()[:1]))

	db, err := dbconn.Open(context.Background(), dbconn.SQLite, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+DefaultTable).Scan(&count))
	assert.Equal(t, 3, count)

	var reason, amount string
	require.NoError(t, db.QueryRow("SELECT fraud_reason, amount FROM "+DefaultTable+" WHERE user_id = '1002'").Scan(&reason, &amount))
	assert.Equal(t, "Jewelry Store, Downtown txn > $1000 | unusual hour", reason)
	assert.Equal(t, "1000.01", amount)

	var idx int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", DefaultTable).Scan(&idx))
	assert.Equal(t, 1, idx)
}

func TestSQLSinkRejectsBadTable(t *testing.T) {
	_, err := NewSQLSink(dbconn.SQLite, "x.db", "flagged; DROP TABLE users")
	require.Error(t, err)
	assert.True(t, tgerrors.IsConfiguration(err))
}

func TestSQLSinkDDL(t *testing.T) {
	s := &SQLSink{Dialect: dbconn.Postgres, Table: "flags"}
	stmts := s.ddl(types.OutputSchema())
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS flags (user_id TEXT NOT NULL, timestamp TEXT NOT NULL, merchant_name TEXT NOT NULL, amount TEXT NOT NULL, fraud_reason TEXT NOT NULL)", stmts[0])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS flags_idx_flagged_user_time ON flags (user_id, timestamp)", stmts[1])
}

func TestProtoSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.pb")
	require.NoError(t, NewProtoSink(path).Write(context.Background(), flaggedRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	msgs, err := ReadProto(f)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	fields := msgs[1].GetFields()
	assert.Equal(t, "1002", fields[types.ColumnUserID].GetStringValue())
	assert.Equal(t, "2024-04-15 13:00:00", fields[types.ColumnTimestamp].GetStringValue())
	assert.Equal(t, "1000.01", fields[types.ColumnAmount].GetStringValue())
	assert.Equal(t, "Jewelry Store, Downtown txn > $1000 | unusual hour", fields[types.ColumnFraudReason].GetStringValue())
}
