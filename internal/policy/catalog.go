package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goccy/go-yaml"
)

// Catalog describes the policy corpus: the files to load, the keyword
// vocabulary used to tag sections, and fallback sections for files that
// cannot be read.
type Catalog struct {
	Policies  []CatalogEntry       `yaml:"policies"`
	Keywords  []string             `yaml:"keywords"`
	Fallbacks map[string][]Section `yaml:"fallbacks"`
}

// CatalogEntry names one policy text file.
type CatalogEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LoadCatalog reads and validates the YAML catalog at path inside fsys.
func LoadCatalog(fsys fs.FS, path string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read policy catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal policy catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	catalog.normalize()
	return &catalog, nil
}

// Validate ensures the catalog has at least one policy and a keyword vocabulary.
func (c *Catalog) Validate() error {
	if c == nil {
		return errors.New("policy catalog is nil")
	}
	if len(c.Policies) == 0 {
		return errors.New("policy catalog lists no policies")
	}
	for i, entry := range c.Policies {
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("policy catalog entry %d has no name", i)
		}
		if strings.TrimSpace(entry.Path) == "" {
			return fmt.Errorf("policy %q has no path", entry.Name)
		}
	}
	if len(c.Keywords) == 0 {
		return errors.New("policy catalog keywords missing")
	}
	return nil
}

func (c *Catalog) normalize() {
	keywords := make([]string, 0, len(c.Keywords))
	seen := make(map[string]struct{}, len(c.Keywords))
	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	c.Keywords = keywords

	for name, sections := range c.Fallbacks {
		for i := range sections {
			if sections[i].PolicyType == "" {
				sections[i].PolicyType = name
			}
		}
		c.Fallbacks[name] = sections
	}
}
