package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// SnappyExt marks snappy-framed files.
const SnappyExt = ".sz"

// CSVSource reads a header-mapped CSV file with the columns user_id,
// timestamp, merchant_name and amount in any order. Extra columns are
// ignored. A path ending in SnappyExt is read through a snappy stream.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Describe implements Source.
func (s *CSVSource) Describe() string {
	return "csv:" + s.Path
}

// Read implements Source.
func (s *CSVSource) Read(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed,
			fmt.Sprintf("failed to open %s", s.Path), err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.Path, SnappyExt) {
		r = snappy.NewReader(f)
	}
	return ReadCSV(ctx, r)
}

// ReadCSV parses CSV records from r.
func ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, tgerrors.NewInputError(tgerrors.CodeBadHeader, "input is empty, expected a header row")
	}
	if err != nil {
		return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed, "failed to read header", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	reader.FieldsPerRecord = len(header)

	var records []Record
	for {
		if len(records)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tgerrors.Wrap(tgerrors.ErrCategoryInput, tgerrors.CodeReadFailed,
				fmt.Sprintf("failed to read record %d", len(records)), err)
		}
		records = append(records, Record{
			RowIndex:     len(records),
			UserID:       fields[cols[0]],
			Timestamp:    fields[cols[1]],
			MerchantName: fields[cols[2]],
			Amount:       fields[cols[3]],
		})
	}
	return records, nil
}

// mapHeader returns the positions of the input columns in header order
// user_id, timestamp, merchant_name, amount.
func mapHeader(header []string) ([4]int, error) {
	want := []string{types.ColumnUserID, types.ColumnTimestamp, types.ColumnMerchantName, types.ColumnAmount}
	var cols [4]int
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for i, name := range want {
		p, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = p
	}
	if len(missing) > 0 {
		return cols, tgerrors.NewInputError(tgerrors.CodeBadHeader,
			fmt.Sprintf("header is missing column(s): %s", strings.Join(missing, ", ")))
	}
	return cols, nil
}
