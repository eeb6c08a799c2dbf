package section

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a sections file.
type File struct {
	Sections []Descriptor `yaml:"sections"`
}

// LoadFile reads and validates a sections file.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sections: %w", err)
	}
	sections, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("sections %s: %w", path, err)
	}
	return sections, nil
}

// Parse decodes a sections document, applies defaults and validates every
// descriptor. Order is preserved; it is the scroll order.
func Parse(data []byte) ([]Descriptor, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Sections) == 0 {
		return nil, ErrNoSections
	}

	seen := make(map[string]int, len(f.Sections))
	for i := range f.Sections {
		d := &f.Sections[i]
		d.applyDefaults()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		if prev, ok := seen[d.ID]; ok {
			return nil, fmt.Errorf("section %d: duplicate id %q (first used by section %d)", i, d.ID, prev)
		}
		seen[d.ID] = i
	}
	return f.Sections, nil
}
