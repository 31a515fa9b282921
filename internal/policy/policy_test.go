package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

func merchants(table *types.ThresholdTable) []string {
	var out []string
	for _, e := range table.Entries() {
		out = append(out, e.Merchant)
	}
	return out
}

func TestParseThresholdsJSONKeepsOrder(t *testing.T) {
	table, err := ParseThresholdsJSON([]byte(`{"Jewelry Store": 1000, "Electronics": 1500.50, "Airline": 3000}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Jewelry Store", "Electronics", "Airline"}, merchants(table))
	limit, ok := table.Lookup("Electronics")
	require.True(t, ok)
	assert.Equal(t, "1500.5", limit.String())
}

func TestThresholdLabels(t *testing.T) {
	table, err := ParseThresholdsJSON([]byte(`{"Jewelry Store": 1000.0, "Electronics": 1500.50, "Airline": 3000, "Yacht": 2e16}`))
	require.NoError(t, err)
	assert.Equal(t, "1000.0", table.Label("Jewelry Store"))
	assert.Equal(t, "1500.5", table.Label("Electronics"))
	assert.Equal(t, "3000", table.Label("Airline"))
	assert.Equal(t, "2e+16", table.Label("Yacht"))
	assert.Equal(t, "", table.Label("Bakery"))

	table, err = ParseThresholdsYAML([]byte("Jewelry Store: 1000.0\nAirline: 3000\n"))
	require.NoError(t, err)
	assert.Equal(t, "1000.0", table.Label("Jewelry Store"))
	assert.Equal(t, "3000", table.Label("Airline"))

	limit, ok := table.Lookup("Jewelry Store")
	require.True(t, ok)
	assert.True(t, limit.Equal(decimal.NewFromInt(1000)))
}

func TestParseThresholdsJSONRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"zero":       `{"A": 0}`,
		"negative":   `{"A": -10}`,
		"string":     `{"A": "1000"}`,
		"null":       `{"A": null}`,
		"not object": `[1, 2]`,
		"empty name": `{"": 10}`,
		"trailing":   `{"A": 1} {"B": 2}`,
		"truncated":  `{"A": 1`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseThresholdsJSON([]byte(input))
			require.Error(t, err)
			assert.True(t, tgerrors.IsConfiguration(err))
			assert.Equal(t, tgerrors.CodeInvalidThreshold, tgerrors.GetCode(err))
		})
	}
}

func TestParseThresholdsJSONEmptyObject(t *testing.T) {
	table, err := ParseThresholdsJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestParseThresholdsYAML(t *testing.T) {
	table, err := ParseThresholdsYAML([]byte("Jewelry Store: 1000\nElectronics: 1500.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Jewelry Store", "Electronics"}, merchants(table))

	_, err = ParseThresholdsYAML([]byte("Jewelry Store: lots\n"))
	assert.True(t, tgerrors.IsConfiguration(err))

	_, err = ParseThresholdsYAML([]byte("- 1\n- 2\n"))
	assert.True(t, tgerrors.IsConfiguration(err))

	table, err = ParseThresholdsYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoadThresholdsByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "merchant_thresholds.json")
	yamlPath := filepath.Join(dir, "merchant_thresholds.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"Jewelry Store": 1000}`), 0644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("Jewelry Store: 2000\n"), 0644))

	fromJSON, err := LoadThresholds(jsonPath)
	require.NoError(t, err)
	limit, _ := fromJSON.Lookup("Jewelry Store")
	assert.Equal(t, "1000", limit.String())

	fromYAML, err := LoadThresholds(yamlPath)
	require.NoError(t, err)
	limit, _ = fromYAML.Lookup("Jewelry Store")
	assert.Equal(t, "2000", limit.String())

	_, err = LoadThresholds(filepath.Join(dir, "missing.json"))
	assert.Equal(t, tgerrors.CodeInvalidConfig, tgerrors.GetCode(err))
}

func TestBuildBlacklist(t *testing.T) {
	def, err := BuildBlacklist(nil)
	require.NoError(t, err)
	assert.Equal(t, len(types.DefaultBlacklist), def.Len())
	assert.True(t, def.Contains("Crypto Exchange"))

	custom, err := BuildBlacklist([]string{"Shady Shop"})
	require.NoError(t, err)
	assert.True(t, custom.Contains("Shady Shop"))
	assert.False(t, custom.Contains("Crypto Exchange"))

	none, err := BuildBlacklist([]string{})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	_, err = BuildBlacklist([]string{"ok", ""})
	assert.True(t, tgerrors.IsConfiguration(err))
}
