package calls

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"xdial-backend/internal/apperr"

	"gopkg.in/yaml.v3"
)

// UnknownCategory buckets calls that carry no response category. They are
// counted, never dropped.
const UnknownCategory = "Unknown"

// Mapping normalizes raw response-category labels to display categories.
// It is loaded once at startup from a versioned YAML file and injected
// wherever reporting runs; instances are immutable after load.
type Mapping struct {
	version       string
	displayByRaw  map[string]string
	rawsByDisplay map[string][]string
}

type mappingFile struct {
	Version    string `yaml:"version"`
	Categories []struct {
		Display string   `yaml:"display"`
		Raw     []string `yaml:"raw"`
	} `yaml:"categories"`
}

// LoadMapping reads and validates the mapping file at path.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category map: %w", err)
	}
	m, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("category map %s: %w", path, err)
	}
	return m, nil
}

// ParseMapping parses the YAML document. A raw label may appear under at
// most one display category; duplicates are rejected at load time rather
// than silently last-writer-wins.
func ParseMapping(data []byte) (*Mapping, error) {
	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	m := &Mapping{
		version:       f.Version,
		displayByRaw:  map[string]string{},
		rawsByDisplay: map[string][]string{},
	}
	for _, c := range f.Categories {
		if c.Display == "" {
			return nil, apperr.Validation("display", "category entry missing display name")
		}
		for _, raw := range c.Raw {
			if raw == "" {
				return nil, apperr.Validation("raw", fmt.Sprintf("empty raw label under %q", c.Display))
			}
			if prev, ok := m.displayByRaw[raw]; ok {
				return nil, apperr.Validation("raw",
					fmt.Sprintf("label %q mapped to both %q and %q", raw, prev, c.Display))
			}
			m.displayByRaw[raw] = c.Display
			m.rawsByDisplay[c.Display] = append(m.rawsByDisplay[c.Display], raw)
		}
	}
	return m, nil
}

// NewMapping builds a mapping directly from raw->display pairs; used by
// tests and seeded defaults.
func NewMapping(version string, displayByRaw map[string]string) *Mapping {
	m := &Mapping{
		version:       version,
		displayByRaw:  map[string]string{},
		rawsByDisplay: map[string][]string{},
	}
	for raw, display := range displayByRaw {
		m.displayByRaw[raw] = display
		m.rawsByDisplay[display] = append(m.rawsByDisplay[display], raw)
	}
	return m
}

func (m *Mapping) Version() string { return m.version }

// Display normalizes a raw label. Empty labels bucket under the Unknown
// sentinel; unmapped labels pass through capitalized.
func (m *Mapping) Display(raw string) string {
	if raw == "" {
		return UnknownCategory
	}
	if d, ok := m.displayByRaw[raw]; ok {
		return d
	}
	return capitalize(raw)
}

// Expand reverse-maps a display category to every raw label behind it. A
// name no entry maps to is treated as a raw label itself.
func (m *Mapping) Expand(display string) []string {
	if raws, ok := m.rawsByDisplay[display]; ok {
		return append([]string(nil), raws...)
	}
	return []string{display}
}

// capitalize uppercases the first rune and lowercases the rest, matching
// the display convention for unmapped labels.
func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
