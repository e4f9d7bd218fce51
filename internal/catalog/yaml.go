package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// cardFile is the on-disk shape of a card definition file.
type cardFile struct {
	Cards []CardDefinition `yaml:"cards"`
}

// LoadFile reads card definitions from a YAML file.
func LoadFile(path string) (*MemoryCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads card definitions from YAML.
func Load(r io.Reader) (*MemoryCatalog, error) {
	var file cardFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return NewMemoryCatalog(file.Cards)
}
