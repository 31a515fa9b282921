// Package policy loads the merchant threshold table and the blacklist.
package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// LoadThresholds reads a threshold table from path. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON. Both hold one mapping of
// merchant name to limit; entry order is preserved.
func LoadThresholds(path string) (*types.ThresholdTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig,
			fmt.Sprintf("failed to read thresholds file %s", path), err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseThresholdsYAML(data)
	default:
		return ParseThresholdsJSON(data)
	}
}

// ParseThresholdsJSON parses a JSON object such as
// {"Jewelry Store": 1000, "Electronics": 1500.5}.
func ParseThresholdsJSON(data []byte) (*types.ThresholdTable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, invalidThresholds("thresholds must be a JSON object", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, invalidThresholds("thresholds must be a JSON object", nil)
	}

	var entries []types.Threshold
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, invalidThresholds("malformed thresholds object", err)
		}
		merchant, _ := keyTok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, invalidThresholds(fmt.Sprintf("malformed threshold for %q", merchant), err)
		}
		num, ok := raw.(json.Number)
		if !ok {
			return nil, invalidThresholds(fmt.Sprintf("threshold for %q is not a number", merchant), nil)
		}
		entry, err := newThreshold(merchant, num.String(), strings.ContainsAny(num.String(), ".eE"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if _, err := dec.Token(); err != nil {
		return nil, invalidThresholds("malformed thresholds object", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, invalidThresholds("unexpected data after thresholds object", err)
	}
	return types.NewThresholdTable(entries...), nil
}

// ParseThresholdsYAML parses a YAML mapping of merchant name to limit.
func ParseThresholdsYAML(data []byte) (*types.ThresholdTable, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalidThresholds("malformed thresholds YAML", err)
	}
	if len(doc.Content) == 0 {
		return types.NewThresholdTable(), nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, invalidThresholds("thresholds must be a YAML mapping", nil)
	}

	entries := make([]types.Threshold, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.ScalarNode || (val.Tag != "!!int" && val.Tag != "!!float") {
			return nil, invalidThresholds(fmt.Sprintf("threshold for %q is not a number", key.Value), nil)
		}
		entry, err := newThreshold(key.Value, val.Value, val.Tag == "!!float")
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return types.NewThresholdTable(entries...), nil
}

// newThreshold parses one limit. Float literals are displayed the way a
// float is printed in reasons ("1000.0", "1500.5"), integers as written.
func newThreshold(merchant, value string, float bool) (types.Threshold, error) {
	limit, err := decimal.NewFromString(value)
	if err != nil {
		return types.Threshold{}, invalidThresholds(fmt.Sprintf("threshold for %q is not a number", merchant), err)
	}
	entry := types.Threshold{Merchant: merchant, Limit: limit}
	if float {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return types.Threshold{}, invalidThresholds(fmt.Sprintf("threshold for %q is not a number", merchant), err)
		}
		entry.Display = formatFloat(f)
	}
	if err := entry.Validate(); err != nil {
		return types.Threshold{}, invalidThresholds(fmt.Sprintf("threshold for %q: %s", merchant, limit), err)
	}
	return entry, nil
}

// formatFloat prints the shortest round-trip form of f, keeping a ".0" on
// whole numbers and switching to exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func invalidThresholds(msg string, cause error) error {
	return tgerrors.NewConfigError(tgerrors.CodeInvalidThreshold, msg, cause)
}
