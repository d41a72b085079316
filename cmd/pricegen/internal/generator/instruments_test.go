package generator_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/fx-platform/cmd/pricegen/internal/generator"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadInstruments(t *testing.T) {
	path := writeFile(t, `
instruments:
  - symbol: EUR/USD
    base: 1.1
    volatility: 0.0008
    trend: 0.0001
  - symbol: GBP/USD
    base: 1.27
    volatility: 0.001
`)

	list, err := generator.LoadInstruments(path)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generator.Instrument{Symbol: "GBP/USD", Base: 1.27, Volatility: 0.001}, list[1])
}

func TestLoadInstruments_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":        "instruments: []\n",
		"not yaml":     "instruments: [\n",
		"no symbol":    "instruments:\n  - base: 1\n",
		"zero base":    "instruments:\n  - symbol: X\n    base: 0\n",
		"negative vol": "instruments:\n  - symbol: X\n    base: 1\n    volatility: -1\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := generator.LoadInstruments(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := generator.LoadInstruments(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
