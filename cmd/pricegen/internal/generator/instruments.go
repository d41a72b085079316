package generator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type instrumentsFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// LoadInstruments reads walk seeds from a YAML file with a top-level
// "instruments" list.
func LoadInstruments(path string) ([]Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instruments file: %w", err)
	}

	var f instrumentsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse instruments file: %w", err)
	}
	if len(f.Instruments) == 0 {
		return nil, errors.New("instruments file lists no instruments")
	}
	for _, inst := range f.Instruments {
		if inst.Symbol == "" || inst.Base <= 0 || inst.Volatility < 0 {
			return nil, fmt.Errorf("invalid instrument %q: needs a symbol, a positive base and a non-negative volatility", inst.Symbol)
		}
	}
	return f.Instruments, nil
}
