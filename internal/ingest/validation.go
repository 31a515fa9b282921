package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// ValidationError describes one problem with one input record.
type ValidationError struct {
	RowIndex int
	Field    string
	Code     string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d, field %q: %s", e.RowIndex, e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Record is one input record before parsing. RowIndex is the record's
// 0-based position among data records.
type Record struct {
	RowIndex     int
	UserID       string
	Timestamp    string
	MerchantName string
	Amount       string
}

// ParseRecord converts a record into a transaction, reporting every field
// problem found.
func ParseRecord(rec Record) (types.Transaction, []*ValidationError) {
	var errs []*ValidationError
	fail := func(field, code, msg string) {
		errs = append(errs, &ValidationError{RowIndex: rec.RowIndex, Field: field, Code: code, Message: msg})
	}

	tx := types.Transaction{
		Ordinal:      rec.RowIndex,
		UserID:       strings.TrimSpace(rec.UserID),
		MerchantName: rec.MerchantName,
	}

	if tx.UserID == "" {
		fail(types.ColumnUserID, tgerrors.CodeMissingField, "user_id is required and cannot be empty")
	}
	if rec.MerchantName == "" {
		fail(types.ColumnMerchantName, tgerrors.CodeMissingField, "merchant_name is required and cannot be empty")
	}

	switch ts := strings.TrimSpace(rec.Timestamp); {
	case ts == "":
		fail(types.ColumnTimestamp, tgerrors.CodeMissingField, "timestamp is required and cannot be empty")
	default:
		t, err := ParseEpochSeconds(ts)
		if err != nil {
			fail(types.ColumnTimestamp, tgerrors.CodeInvalidTimestamp, err.Error())
		}
		tx.Timestamp = t
	}

	switch amt := strings.TrimSpace(rec.Amount); {
	case amt == "":
		fail(types.ColumnAmount, tgerrors.CodeMissingField, "amount is required and cannot be empty")
	default:
		d, err := decimal.NewFromString(amt)
		if err != nil {
			fail(types.ColumnAmount, tgerrors.CodeInvalidAmount, fmt.Sprintf("amount %q is not a decimal number", amt))
			break
		}
		if d.IsNegative() {
			fail(types.ColumnAmount, tgerrors.CodeNegativeAmount, fmt.Sprintf("amount %s must not be negative", d))
		}
		tx.Amount = d
	}

	return tx, errs
}

// ParseEpochSeconds parses Unix epoch seconds, integer or fractional, into a
// UTC instant.
func ParseEpochSeconds(s string) (time.Time, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not epoch seconds", s)
	}
	secs := d.Truncate(0)
	nanos := d.Sub(secs).Shift(9).Truncate(0)
	if !secs.Equal(decimal.NewFromInt(secs.IntPart())) {
		return time.Time{}, fmt.Errorf("timestamp %q is out of range", s)
	}
	return time.Unix(secs.IntPart(), nanos.IntPart()).UTC(), nil
}

// Parse converts records into transactions. All problems are collected; if
// any exist, no transactions are returned and the error is an INPUT error
// wrapping ValidationErrors.
func Parse(records []Record) ([]types.Transaction, error) {
	txns := make([]types.Transaction, 0, len(records))
	var all ValidationErrors
	for _, rec := range records {
		tx, errs := ParseRecord(rec)
		if len(errs) > 0 {
			all = append(all, errs...)
			continue
		}
		txns = append(txns, tx)
	}
	if len(all) > 0 {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, all[0].Code,
			fmt.Sprintf("%d invalid field(s) in input", len(all)), all)
	}
	return txns, nil
}
