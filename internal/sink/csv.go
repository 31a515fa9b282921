package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// CSVSink writes a header row followed by one row per transaction. With
// Snappy set, or a path ending in ".sz", the file is snappy-framed.
type CSVSink struct {
	Path   string
	Snappy bool
}

// NewCSVSink creates a CSV sink.
func NewCSVSink(path string, compress bool) *CSVSink {
	return &CSVSink{Path: path, Snappy: compress || strings.HasSuffix(path, ".sz")}
}

// Describe implements Sink.
func (s *CSVSink) Describe() string {
	return "csv:" + s.Path
}

// Write implements Sink. The file is written to a temporary name and renamed
// into place, so a failed run never leaves a partial file at Path.
func (s *CSVSink) Write(ctx context.Context, rows []types.Transaction) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return tgerrors.NewOutputError("failed to create output directory", err)
	}

	tmp := s.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return tgerrors.NewOutputError(fmt.Sprintf("failed to create %s", tmp), err)
	}

	if err := s.writeTo(ctx, f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return tgerrors.NewOutputError("failed to close output file", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return tgerrors.NewOutputError("failed to move output into place", err)
	}
	return nil
}

func (s *CSVSink) writeTo(ctx context.Context, f *os.File, rows []types.Transaction) error {
	var (
		out   io.Writer
		flush func() error
	)
	if s.Snappy {
		sw := snappy.NewBufferedWriter(f)
		out, flush = sw, sw.Close
	} else {
		bw := bufio.NewWriter(f)
		out, flush = bw, bw.Flush
	}

	if err := WriteCSV(ctx, out, rows); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return tgerrors.NewOutputError("failed to flush output", err)
	}
	return nil
}

// WriteCSV writes rows as CSV to w.
func WriteCSV(ctx context.Context, w io.Writer, rows []types.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.OutputSchema().ColumnNames()); err != nil {
		return tgerrors.NewOutputError("failed to write header", err)
	}
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := cw.Write(Fields(row)); err != nil {
			return tgerrors.NewOutputError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return tgerrors.NewOutputError("failed to flush csv", err)
	}
	return nil
}
