package types

// Schema defines the column layout of a flagged-transaction output.
type Schema struct {
	// Version tracks layout changes for downstream consumers
	Version int `json:"version"`

	// Columns defines the columns in output order
	Columns []ColumnDef `json:"columns"`

	// Indexes defines the indexes to create when the output is a SQL table
	Indexes []IndexDef `json:"indexes"`
}

// ColumnDef defines a single output column.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the SQL type: TEXT, INTEGER, REAL
	Type string `json:"type"`

	// Nullable indicates whether the column can contain NULL values
	Nullable bool `json:"nullable"`
}

// IndexDef defines an index on the output table.
type IndexDef struct {
	// Name is the index name
	Name string `json:"name"`

	// Columns lists the columns included in the index
	Columns []string `json:"columns"`
}

// Output column names.
const (
	ColumnUserID       = "user_id"
	ColumnTimestamp    = "timestamp"
	ColumnMerchantName = "merchant_name"
	ColumnAmount       = "amount"
	ColumnFraudReason  = "fraud_reason"
)

// OutputSchema returns the layout of flagged-transaction output: every input
// field followed by fraud_reason.
func OutputSchema() Schema {
	return Schema{
		Version: 1,
		Columns: []ColumnDef{
			{Name: ColumnUserID, Type: "TEXT"},
			{Name: ColumnTimestamp, Type: "TEXT"},
			{Name: ColumnMerchantName, Type: "TEXT"},
			{Name: ColumnAmount, Type: "TEXT"},
			{Name: ColumnFraudReason, Type: "TEXT"},
		},
		Indexes: []IndexDef{
			{Name: "idx_flagged_user_time", Columns: []string{ColumnUserID, ColumnTimestamp}},
		},
	}
}

// ColumnNames returns the column names in order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// TimestampLayout is the layout used when timestamps are written as text.
const TimestampLayout = "2006-01-02 15:04:05"
