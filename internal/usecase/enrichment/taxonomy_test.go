package enrichment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTaxonomyOrder(t *testing.T) {
	tax, err := DefaultTaxonomy()
	if err != nil {
		t.Fatalf("DefaultTaxonomy() error = %v", err)
	}

	want := []string{"Musique", "Théâtre", "Danse", "Exposition", "Cinéma", "Conférence", "Sport", "Festival", "Autre"}
	got := tax.Categories()
	if len(got) != len(want) {
		t.Fatalf("Categories() len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("Categories()[%d] = %q, want %q", i, got[i].Name, name)
		}
	}
	if tax.Fallback() != "Autre" {
		t.Fatalf("Fallback() = %q, want Autre", tax.Fallback())
	}
	if subs := got[0].Subcategories; len(subs) != 8 || subs[0].Name != "Jazz" {
		t.Fatalf("Musique subcategories = %+v", subs)
	}

	got[0].Name = "mutated"
	if tax.Categories()[0].Name != "Musique" {
		t.Fatalf("Categories() must return a copy")
	}
}

func TestTaxonomyHintOrder(t *testing.T) {
	tax, err := DefaultTaxonomy()
	if err != nil {
		t.Fatalf("DefaultTaxonomy() error = %v", err)
	}

	cases := map[string]string{
		"Concert / Musique":  "Musique",
		"Exposition photo":   "Exposition",
		"Festival de cinema": "Cinéma",
		"Sport collectif":    "Sport",
	}
	for hint, want := range cases {
		got, ok := tax.MatchHint(hint)
		if !ok || got != want {
			t.Fatalf("MatchHint(%q) = %q, %v, want %q", hint, got, ok, want)
		}
	}
	if _, ok := tax.MatchHint("atelier"); ok {
		t.Fatalf("MatchHint(atelier) expected no match")
	}
}

func TestParseTaxonomyValidation(t *testing.T) {
	cases := map[string]string{
		"missing fallback": `[[category]]
name = "A"`,
		"unknown fallback": `fallback = "Z"
[[category]]
name = "A"`,
		"duplicate category": `fallback = "A"
[[category]]
name = "A"
[[category]]
name = "A"`,
		"hint to unknown": `fallback = "A"
[[category]]
name = "A"
[[hint]]
match = "x"
category = "B"`,
	}
	for name, doc := range cases {
		if _, err := ParseTaxonomy([]byte(doc)); err == nil {
			t.Fatalf("ParseTaxonomy(%s) expected error", name)
		}
	}
}

func TestLoadTaxonomyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	doc := `fallback = "Divers"
hint_threshold = 0.5
hint_confidence = 0.7

[[category]]
name = "Marché"
keywords = ["  Marché ", "brocante"]

[[category]]
name = "Divers"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}
	cats := tax.Categories()
	if len(cats) != 2 || strings.Join(cats[0].Keywords, ",") != "marché,brocante" {
		t.Fatalf("LoadTaxonomy() categories = %+v", cats)
	}
	if tax.saturationHits != 3 {
		t.Fatalf("saturationHits = %d, want default 3", tax.saturationHits)
	}
}
