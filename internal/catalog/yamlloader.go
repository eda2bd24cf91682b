package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a catalog seed YAML file.
//
// Example:
//
//	store:
//	  name: "Sharma Kirana"
//	products:
//	  - name: "sugar"
//	    native_unit: kg
//	    selling_price: 50
//	    stock: 25
type File struct {
	Store    StoreMeta `yaml:"store"`
	Products []Product `yaml:"products"`
}

// StoreMeta holds top-level metadata for a catalog seed file.
type StoreMeta struct {
	// Name is the store's display name.
	Name string `yaml:"name"`

	// Description is a free-text note about the seed data.
	Description string `yaml:"description"`
}

// LoadFile reads and parses a catalog seed YAML file from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open seed file %q: %w", path, err)
	}
	defer f.Close()

	cf, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse seed file %q: %w", path, err)
	}
	return cf, nil
}

// LoadFromReader parses catalog seed YAML from an [io.Reader]. The reader is
// consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("catalog: decode seed yaml: %w", err)
	}
	for i, p := range cf.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog: products[%d] has no name", i)
		}
		if !p.NativeUnit.IsValid() {
			return nil, fmt.Errorf("catalog: products[%d] %q: native_unit %q is not one of kg, g, l, ml, pcs", i, p.Name, p.NativeUnit)
		}
	}
	return &cf, nil
}
