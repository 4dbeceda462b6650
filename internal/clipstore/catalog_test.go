package clipstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

const catalogYAML = `en:
  contestTitle: [c-mayor]
  candidateCount: [c-vote-for, c-two, c-candidates]
  silentKey: []
es:
  contestTitle: [s-alcalde]
es-us:
  labelYes: [s-si]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalogYAML(t *testing.T) {
	c, err := LoadCatalog(writeFile(t, t.TempDir(), "audio.yml", catalogYAML))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if got := c.Languages(); !reflect.DeepEqual(got, []string{"en", "es", "es-US"}) {
		t.Errorf("Languages = %v", got)
	}

	tests := []struct {
		name   string
		key    string
		lang   string
		want   []string
		wantOK bool
	}{
		{"single clip", "contestTitle", "en", []string{"c-mayor"}, true},
		{"multiple clips keep order", "candidateCount", "en", []string{"c-vote-for", "c-two", "c-candidates"}, true},
		{"key without audio", "silentKey", "en", nil, false},
		{"unknown key", "nope", "en", nil, false},
		{"regional entry", "labelYes", "es-US", []string{"s-si"}, true},
		{"regional falls back to parent", "contestTitle", "es-US", []string{"s-alcalde"}, true},
		{"lookup language is canonicalized", "labelYes", "es-us", []string{"s-si"}, true},
		{"unknown language", "contestTitle", "fr", nil, false},
		{"invalid language", "contestTitle", "not a tag", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.ClipIDs(tt.key, tt.lang)
			if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ClipIDs(%s, %s) = %v, %v; want %v, %v", tt.key, tt.lang, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLoadCatalogJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "audio.json", `{"en": {"title": ["a", "b"]}}`)

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if got, ok := c.ClipIDs("title", "en"); !ok || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ClipIDs = %v, %v", got, ok)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("Expected error for a missing file")
	}
	if _, err := LoadCatalog(writeFile(t, dir, "bad.yml", "en: [not, a, map")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
	if _, err := LoadCatalog(writeFile(t, dir, "lang.yml", "\"not a tag\":\n  k: [a]\n")); err == nil {
		t.Error("Expected error for an invalid language")
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	c, _ := NewCatalog(map[string]map[string][]string{"en": {"k": {"a"}}})

	ids, _ := c.ClipIDs("k", "en")
	ids[0] = "mutated"

	if got, _ := c.ClipIDs("k", "en"); got[0] != "a" {
		t.Error("Callers must not be able to mutate the catalog")
	}
}

func TestCatalogSetAndReferences(t *testing.T) {
	c, _ := NewCatalog(map[string]map[string][]string{
		"en": {"b": {"x", "y"}, "a": {"y", "z"}},
	})
	if err := c.Set("EN", "c", []string{"w"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	want := []audio.ClipReference{
		{ClipID: "y", LanguageCode: "en"},
		{ClipID: "z", LanguageCode: "en"},
		{ClipID: "x", LanguageCode: "en"},
		{ClipID: "w", LanguageCode: "en"},
	}
	if got := c.References("en"); !reflect.DeepEqual(got, want) {
		t.Errorf("References = %v, want %v", got, want)
	}
}

func TestCatalogKeys(t *testing.T) {
	c, _ := NewCatalog(map[string]map[string][]string{
		"en":    {"b": {"x"}, "a": {"y"}},
		"es-US": {"c": {"z"}},
	})
	if got := c.Keys("en"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys(en) = %v", got)
	}
	if got := c.Keys("es-us"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("Keys(es-us) = %v", got)
	}
	if got := c.Keys("fr"); len(got) != 0 {
		t.Errorf("Keys(fr) = %v, want none", got)
	}
}
