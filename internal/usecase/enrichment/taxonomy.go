package enrichment

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default_categories.toml
var defaultCategoriesTOML []byte

type taxonomySubcategoryFile struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

type taxonomyCategoryFile struct {
	Name          string                    `toml:"name"`
	Keywords      []string                  `toml:"keywords"`
	Subcategories []taxonomySubcategoryFile `toml:"subcategory"`
}

type taxonomyHintFile struct {
	Match    string `toml:"match"`
	Category string `toml:"category"`
}

type taxonomyFile struct {
	Fallback       string                 `toml:"fallback"`
	HintThreshold  float64                `toml:"hint_threshold"`
	HintConfidence float64                `toml:"hint_confidence"`
	SaturationHits int                    `toml:"saturation_hits"`
	Categories     []taxonomyCategoryFile `toml:"category"`
	Hints          []taxonomyHintFile     `toml:"hint"`
}

type Subcategory struct {
	Name     string
	Keywords []string
}

type Category struct {
	Name          string
	Keywords      []string
	Subcategories []Subcategory
}

type Hint struct {
	Match    string
	Category string
}

// Taxonomy is the ordered keyword table. It is built once and never mutated.
type Taxonomy struct {
	categories     []Category
	hints          []Hint
	fallback       string
	hintThreshold  float64
	hintConfidence float64
	saturationHits int
}

// DefaultTaxonomy returns the embedded table.
func DefaultTaxonomy() (*Taxonomy, error) {
	return ParseTaxonomy(defaultCategoriesTOML)
}

// LoadTaxonomy reads path, or the embedded table when path is empty.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultTaxonomy()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	t, err := ParseTaxonomy(raw)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return t, nil
}

func ParseTaxonomy(raw []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	t := &Taxonomy{
		fallback:       strings.TrimSpace(file.Fallback),
		hintThreshold:  file.HintThreshold,
		hintConfidence: file.HintConfidence,
		saturationHits: file.SaturationHits,
	}
	if t.fallback == "" {
		return nil, errors.New("fallback is required")
	}
	if t.saturationHits <= 0 {
		t.saturationHits = 3
	}
	if t.hintConfidence < 0 || t.hintConfidence > 1 {
		return nil, errors.New("hint_confidence must be within [0, 1]")
	}

	seen := map[string]bool{}
	for i, c := range file.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category[%d].name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("category %q declared twice", name)
		}
		seen[name] = true

		category := Category{Name: name, Keywords: normalizeKeywords(c.Keywords)}
		for j, s := range c.Subcategories {
			subName := strings.TrimSpace(s.Name)
			if subName == "" {
				return nil, fmt.Errorf("category %q subcategory[%d].name is required", name, j)
			}
			category.Subcategories = append(category.Subcategories, Subcategory{
				Name:     subName,
				Keywords: normalizeKeywords(s.Keywords),
			})
		}
		t.categories = append(t.categories, category)
	}
	if !seen[t.fallback] {
		return nil, fmt.Errorf("fallback %q is not a declared category", t.fallback)
	}

	for i, h := range file.Hints {
		match := strings.ToLower(strings.TrimSpace(h.Match))
		target := strings.TrimSpace(h.Category)
		if match == "" {
			return nil, fmt.Errorf("hint[%d].match is required", i)
		}
		if !seen[target] {
			return nil, fmt.Errorf("hint %q targets unknown category %q", match, target)
		}
		t.hints = append(t.hints, Hint{Match: match, Category: target})
	}
	return t, nil
}

func (t *Taxonomy) Fallback() string { return t.fallback }

// Categories returns a copy of the ordered category table.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		c.Keywords = append([]string(nil), c.Keywords...)
		c.Subcategories = append([]Subcategory(nil), c.Subcategories...)
		out[i] = c
	}
	return out
}

// MatchHint returns the category of the first hint contained in hint.
func (t *Taxonomy) MatchHint(hint string) (string, bool) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return "", false
	}
	for _, h := range t.hints {
		if strings.Contains(hint, h.Match) {
			return h.Category, true
		}
	}
	return "", false
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
