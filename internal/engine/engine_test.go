package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/internal/detector"
	"github.com/txnguard/txnguard/pkg/types"
)

var base = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func tx(user string, offsetSec int, merchant, amount string) types.Transaction {
	return types.Transaction{
		UserID:       user,
		Timestamp:    base.Add(time.Duration(offsetSec) * time.Second),
		MerchantName: merchant,
		Amount:       decimal.RequireFromString(amount),
	}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = -1
	if _, err := New(cfg); !tgerrors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Params.HighFrequencyCount = 0
	if _, err := New(cfg); !tgerrors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Workers = 0
	if _, err := New(cfg); err != nil {
		t.Errorf("zero workers should default to one: %v", err)
	}
}

func TestEndToEndHighFrequency(t *testing.T) {
	var txns []types.Transaction
	for i := 0; i < 5; i++ {
		txns = append(txns, tx("u1", i*10, "Grocery", "10"))
	}

	result, err := mustEngine(t, DefaultConfig()).Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Flagged) != 5 {
		t.Fatalf("expected 5 flagged rows, got %d", len(result.Flagged))
	}

	// The diversity detector counts every merchant, so rows 3-5 also hit it.
	want := []string{
		"high frequency",
		"high frequency",
		"high frequency | multiple merchants in 5min",
		"high frequency | multiple merchants in 5min",
		"high frequency | multiple merchants in 5min",
	}
	for i, row := range result.Flagged {
		if row.FraudReason != want[i] {
			t.Errorf("row %d: expected %q, got %q", i, want[i], row.FraudReason)
		}
	}
}

func TestEndToEndHighFrequencyOnly(t *testing.T) {
	var txns []types.Transaction
	for i := 0; i < 5; i++ {
		txns = append(txns, tx("u1", i*10, "Grocery", "10"))
	}

	cfg := DefaultConfig()
	cfg.Params.DiversityMinCount = 6
	result, err := mustEngine(t, cfg).Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Flagged) != 5 {
		t.Fatalf("expected 5 flagged rows, got %d", len(result.Flagged))
	}
	for i, row := range result.Flagged {
		if row.FraudReason != "high frequency" {
			t.Errorf("row %d: expected only high frequency, got %q", i, row.FraudReason)
		}
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	txns := []types.Transaction{
		tx("bob", 500, "Crypto Exchange", "1"),
		tx("alice", 100, "Grocery", "5"),
		tx("alice", 0, "Luxury Watches", "5"),
		tx("bob", 10, "Fake Charity", "1"),
		tx("carol", 0, "Grocery", "1"),
	}

	result, err := mustEngine(t, DefaultConfig()).Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Annotated) != len(txns) {
		t.Fatalf("expected %d annotated rows, got %d", len(txns), len(result.Annotated))
	}
	for i, row := range result.Annotated {
		if row.Ordinal != i || row.UserID != txns[i].UserID {
			t.Errorf("annotated row %d out of place: %+v", i, row)
		}
	}

	wantOrdinals := []int{0, 2, 3}
	if len(result.Flagged) != len(wantOrdinals) {
		t.Fatalf("expected %d flagged rows, got %d", len(wantOrdinals), len(result.Flagged))
	}
	for i, row := range result.Flagged {
		if row.Ordinal != wantOrdinals[i] {
			t.Errorf("flagged %d: expected ordinal %d, got %d", i, wantOrdinals[i], row.Ordinal)
		}
		if row.FraudReason != "blacklisted merchant" {
			t.Errorf("flagged %d: unexpected reason %q", i, row.FraudReason)
		}
	}
}

func TestRunDoesNotModifyInput(t *testing.T) {
	txns := []types.Transaction{tx("u", 0, "Crypto Exchange", "1")}
	if _, err := mustEngine(t, DefaultConfig()).Run(context.Background(), txns); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if txns[0].FraudReason != "" {
		t.Error("input rows should not be annotated")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	txns := []types.Transaction{
		tx("u", 0, "Crypto Exchange", "2500.005"),
		tx("u", 60, "Crypto Exchange", "2500.005"),
		tx("u", 61, "Grocery", "1"),
	}
	e := mustEngine(t, DefaultConfig())

	first, err := e.Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := e.Run(context.Background(), first.Annotated)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	for i := range first.Annotated {
		if first.Annotated[i].FraudReason != second.Annotated[i].FraudReason {
			t.Errorf("row %d: %q became %q", i, first.Annotated[i].FraudReason, second.Annotated[i].FraudReason)
		}
	}
	if got := first.Annotated[1].FraudReason; got != "blacklisted merchant | burst spending > $5000 in 10min" {
		t.Errorf("row 1: unexpected annotation %q", got)
	}
	if got := first.Annotated[2].FraudReason; got != "multiple merchants in 5min | burst spending > $5000 in 10min" {
		t.Errorf("row 2: unexpected annotation %q", got)
	}
}

func TestRunIsIdempotentWithSeparatorInMerchant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.Thresholds = types.NewThresholdTable(types.Threshold{Merchant: "A | B", Limit: decimal.NewFromInt(100)})
	e := mustEngine(t, cfg)

	first, err := e.Run(context.Background(), []types.Transaction{tx("u", 0, "A | B", "200")})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := e.Run(context.Background(), first.Annotated)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	want := "A | B txn > $100"
	if got := first.Annotated[0].FraudReason; got != want {
		t.Errorf("first run: got %q, want %q", got, want)
	}
	if got := second.Annotated[0].FraudReason; got != want {
		t.Errorf("second run: got %q, want %q", got, want)
	}
}

func TestRunThresholdReason(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.Thresholds = types.NewThresholdTable(types.Threshold{Merchant: "Jewelry Store", Limit: decimal.NewFromInt(1000)})
	txns := []types.Transaction{
		tx("u", 0, "Jewelry Store", "1000.00"),
		tx("u", 3600, "Jewelry Store", "1000.01"),
	}

	result, err := mustEngine(t, cfg).Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Flagged) != 1 || result.Flagged[0].Ordinal != 1 {
		t.Fatalf("expected only the second row flagged, got %+v", result.Flagged)
	}
	if got := result.Flagged[0].FraudReason; got != "Jewelry Store txn > $1000" {
		t.Errorf("unexpected reason %q", got)
	}
}

func TestRunThresholdReasonUsesLimitLabel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.Thresholds = types.NewThresholdTable(types.Threshold{
		Merchant: "Jewelry Store",
		Limit:    decimal.NewFromInt(1000),
		Display:  "1000.0",
	})
	result, err := mustEngine(t, cfg).Run(context.Background(), []types.Transaction{tx("u", 0, "Jewelry Store", "1200")})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := result.Flagged[0].FraudReason; got != "Jewelry Store txn > $1000.0" {
		t.Errorf("unexpected reason %q", got)
	}
}

func TestRunStats(t *testing.T) {
	txns := []types.Transaction{
		tx("a", 0, "Crypto Exchange", "1"),
		tx("b", 0, "Fake Charity", "1"),
		tx("b", 7200, "Grocery", "1"),
	}
	e := mustEngine(t, DefaultConfig())
	result, err := e.Run(context.Background(), txns)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	st := result.Stats
	if st.Rows != 3 || st.Users != 2 || st.Flagged != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.LongestUser != "b" || st.LongestStream != 2 {
		t.Errorf("expected longest stream b/2, got %s/%d", st.LongestUser, st.LongestStream)
	}
	if !st.From.Equal(base) || !st.To.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected span %v - %v", st.From, st.To)
	}
	if len(st.Detectors) != 7 {
		t.Fatalf("expected 7 detector entries, got %d", len(st.Detectors))
	}
	for _, d := range st.Detectors {
		want := 0
		if d.Name == detector.NameBlacklist {
			want = 2
		}
		if d.Hits != want {
			t.Errorf("%s: expected %d hits, got %d", d.Name, want, d.Hits)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	result, err := mustEngine(t, DefaultConfig()).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Annotated) != 0 || len(result.Flagged) != 0 {
		t.Error("empty input should produce empty output")
	}
	if !result.Stats.From.IsZero() || result.Stats.Users != 0 {
		t.Errorf("unexpected stats for empty input %+v", result.Stats)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mustEngine(t, DefaultConfig()).Run(ctx, []types.Transaction{tx("u", 0, "Grocery", "1")})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestFilter(t *testing.T) {
	rows := []types.Transaction{
		{Ordinal: 3, FraudReason: "x"},
		{Ordinal: 1},
		{Ordinal: 0, FraudReason: "y"},
	}
	out := Filter(rows)
	if len(out) != 2 || out[0].Ordinal != 0 || out[1].Ordinal != 3 {
		t.Errorf("unexpected filter output %+v", out)
	}
	if rows[0].Ordinal != 3 {
		t.Error("filter should not reorder its input")
	}
}
