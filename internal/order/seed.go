package order

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document of standing orders placed at start-up.
type SeedFile struct {
	Orders []PlaceRequest `yaml:"orders"`
}

// LoadSeedFile reads placement requests from a YAML file. Every entry is
// validated; the first invalid one fails the whole file.
func LoadSeedFile(path string) ([]PlaceRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document already in memory.
func ParseSeed(data []byte) ([]PlaceRequest, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, req := range file.Orders {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("seed order %d: %w", i, err)
		}
	}
	return file.Orders, nil
}
