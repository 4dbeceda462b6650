// Package clipstore supplies the engine's external data: the catalog that
// maps translation keys to clip ids, and sources that fetch clip payloads
// from a directory or an HTTP backend, optionally through the clip cache.
package clipstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Catalog maps translation keys to clip ids per language. Its file form is
// {languageCode: {key: [clipId, ...]}} in YAML or JSON.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]map[string][]string
}

// NewCatalog builds a catalog from an in-memory map. Language codes are
// canonicalized.
func NewCatalog(entries map[string]map[string][]string) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]map[string][]string, len(entries))}
	for code, keys := range entries {
		lang, err := canonical(code)
		if err != nil {
			return nil, err
		}
		dst := c.entries[lang]
		if dst == nil {
			dst = make(map[string][]string, len(keys))
			c.entries[lang] = dst
		}
		for key, ids := range keys {
			dst[key] = append([]string(nil), ids...)
		}
	}
	return c, nil
}

// LoadCatalog reads a catalog file. Files ending in .json are parsed as
// JSON, anything else as YAML.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog: %w", err)
	}

	var entries map[string]map[string][]string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse catalog %s: %w", path, err)
	}

	c, err := NewCatalog(entries)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded audio catalog", "path", path, "languages", c.Languages())
	return c, nil
}

// ClipIDs returns the clip ids for key in languageCode. A regional
// language falls back to its parent, so "es-US" finds entries filed under
// "es".
func (c *Catalog) ClipIDs(key, languageCode string) ([]string, bool) {
	tag, err := language.Parse(languageCode)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for ; ; tag = tag.Parent() {
		if ids, ok := c.entries[tag.String()][key]; ok {
			if len(ids) == 0 {
				return nil, false
			}
			return append([]string(nil), ids...), true
		}
		if tag.IsRoot() {
			return nil, false
		}
	}
}

// Set replaces the clip ids of one key.
func (c *Catalog) Set(languageCode, key string, ids []string) error {
	lang, err := canonical(languageCode)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[lang] == nil {
		c.entries[lang] = make(map[string][]string)
	}
	c.entries[lang][key] = append([]string(nil), ids...)
	return nil
}

// Languages returns the catalog languages in sorted order.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	langs := make([]string, 0, len(c.entries))
	for lang := range c.entries {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// References returns every clip the catalog names for languageCode, each
// once, in key order.
func (c *Catalog) References(languageCode string) []audio.ClipReference {
	lang, err := canonical(languageCode)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.keysLocked(lang)
	seen := make(map[string]bool)
	var refs []audio.ClipReference
	for _, key := range keys {
		for _, id := range c.entries[lang][key] {
			if !seen[id] {
				seen[id] = true
				refs = append(refs, audio.ClipReference{ClipID: id, LanguageCode: lang})
			}
		}
	}
	return refs
}

// Keys returns the keys defined for languageCode itself, sorted. Keys
// reached only through a parent language are not included.
func (c *Catalog) Keys(languageCode string) []string {
	lang, err := canonical(languageCode)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keysLocked(lang)
}

func (c *Catalog) keysLocked(lang string) []string {
	keys := make([]string, 0, len(c.entries[lang]))
	for key := range c.entries[lang] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func canonical(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", code, err)
	}
	return tag.String(), nil
}
