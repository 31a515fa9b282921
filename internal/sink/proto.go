package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// ProtoSink writes each row as a varint length-delimited
// google.protobuf.Struct keyed by output column name.
type ProtoSink struct {
	Path string
}

// NewProtoSink creates a protobuf sink.
func NewProtoSink(path string) *ProtoSink {
	return &ProtoSink{Path: path}
}

// Describe implements Sink.
func (s *ProtoSink) Describe() string {
	return "protobuf:" + s.Path
}

// Write implements Sink.
func (s *ProtoSink) Write(ctx context.Context, rows []types.Transaction) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return tgerrors.NewOutputError("failed to create output directory", err)
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return tgerrors.NewOutputError(fmt.Sprintf("failed to create %s", s.Path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := WriteProto(ctx, w, rows); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return tgerrors.NewOutputError("failed to flush output", err)
	}
	if err := f.Close(); err != nil {
		return tgerrors.NewOutputError("failed to close output file", err)
	}
	return nil
}

// WriteProto writes rows as delimited Struct messages to w.
func WriteProto(ctx context.Context, w io.Writer, rows []types.Transaction) error {
	cols := types.OutputSchema().ColumnNames()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := Fields(row)
		m := make(map[string]interface{}, len(cols))
		for j, c := range cols {
			m[c] = fields[j]
		}
		msg, err := structpb.NewStruct(m)
		if err != nil {
			return tgerrors.NewOutputError(fmt.Sprintf("failed to encode row %d", i), err)
		}
		if _, err := protodelim.MarshalTo(w, msg); err != nil {
			return tgerrors.NewOutputError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}
	return nil
}

// ReadProto decodes every delimited Struct message from r.
func ReadProto(r io.Reader) ([]*structpb.Struct, error) {
	br := bufio.NewReader(r)
	var out []*structpb.Struct
	for {
		msg := &structpb.Struct{}
		if err := protodelim.UnmarshalFrom(br, msg); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, msg)
	}
}
