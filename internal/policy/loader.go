package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"support-assistant/backend/policies"
)

// minSectionRunes is the length a section must exceed to be kept.
const minSectionRunes = 50

var numberedHeading = regexp.MustCompile(`^\d+\.`)

// Load reads every policy file named in the catalog from fsys and splits it
// into sections. Files that cannot be read are replaced by the catalog's
// fallback sections for that policy.
func Load(fsys fs.FS, catalog *Catalog, catalogDir string) ([]Section, error) {
	if catalog == nil {
		return nil, errors.New("policy catalog is nil")
	}

	var sections []Section
	for _, entry := range catalog.Policies {
		filePath := path.Join(catalogDir, entry.Path)
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read policy %s: %w", entry.Name, err)
			}
			fallback := catalog.Fallbacks[entry.Name]
			logrus.WithFields(logrus.Fields{
				"policy":    entry.Name,
				"path":      filePath,
				"fallbacks": len(fallback),
			}).Warn("policy file not found")
			sections = append(sections, fallback...)
			continue
		}

		for i, text := range SplitSections(string(data)) {
			sections = append(sections, Section{
				ID:         fmt.Sprintf("%s_%d", entry.Name, i),
				PolicyType: entry.Name,
				Content:    text,
				Keywords:   ExtractKeywords(text, catalog.Keywords),
			})
		}
	}
	return sections, nil
}

// LoadFS loads the catalog at catalogPath and every policy it references.
func LoadFS(fsys fs.FS, catalogPath string) ([]Section, error) {
	catalog, err := LoadCatalog(fsys, catalogPath)
	if err != nil {
		return nil, err
	}
	return Load(fsys, catalog, path.Dir(catalogPath))
}

// SplitSections breaks policy text into sections. A section starts at a
// numbered line ("3."), an all-caps line, or a line beginning with SWIGGY.
// Blank lines are dropped and sections of 50 characters or fewer are discarded.
func SplitSections(content string) []string {
	var sections []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, "\n")
		if utf8.RuneCountInString(text) > minSectionRunes {
			sections = append(sections, text)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isHeading(line) {
			flush()
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// ExtractKeywords returns the vocabulary entries that occur in text, in vocabulary order.
func ExtractKeywords(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	var keywords []string
	for _, kw := range vocabulary {
		if kw != "" && strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func isHeading(line string) bool {
	return numberedHeading.MatchString(line) || isUpper(line) || strings.HasPrefix(line, "SWIGGY")
}

// isUpper reports whether line has at least one cased letter and none in lower case.
func isUpper(line string) bool {
	cased := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// LoadEngine builds an engine from the catalog in dir, or from the embedded
// corpus when dir is empty.
func LoadEngine(dir string) (*Engine, error) {
	var (
		sections []Section
		err      error
	)
	if strings.TrimSpace(dir) == "" {
		sections, err = LoadFS(policies.FS, policies.CatalogFile)
	} else {
		sections, err = LoadFS(os.DirFS(dir), policies.CatalogFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	logrus.WithFields(logrus.Fields{"dir": dir, "sections": len(sections)}).Info("policy corpus loaded")
	return NewEngine(sections), nil
}
