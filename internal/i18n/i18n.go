// Package i18n serves UI message catalogs keyed by id and language tag.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed catalogs/*.json
var catalogsFS embed.FS

// DefaultLang is the fallback language tag.
const DefaultLang = "en"

// Catalog resolves message ids for a set of languages. Lookups fall back to
// the default language before giving up.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

// Load parses all embedded catalogs. Each file is named <lang>.json and
// holds a flat id-to-string object.
func Load() (*Catalog, error) {
	entries, err := catalogsFS.ReadDir("catalogs")
	if err != nil {
		return nil, err
	}
	c := &Catalog{messages: make(map[string]map[string]string)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		lang := strings.TrimSuffix(name, ".json")
		body, err := catalogsFS.ReadFile("catalogs/" + name)
		if err != nil {
			return nil, err
		}
		var m map[string]string
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		c.messages[lang] = m
	}
	if _, ok := c.messages[DefaultLang]; !ok {
		return nil, fmt.Errorf("default catalog %q missing", DefaultLang)
	}
	return c, nil
}

// Languages lists available language tags, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a language tag is available.
func (c *Catalog) Has(lang string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.messages[normalize(lang)]
	return ok
}

// Lookup resolves one message id, falling back to the default language and
// finally to the id itself.
func (c *Catalog) Lookup(lang, id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.messages[normalize(lang)]; ok {
		if v, ok := m[id]; ok {
			return v
		}
	}
	if v, ok := c.messages[DefaultLang][id]; ok {
		return v
	}
	return id
}

// Messages returns the full catalog for a language, with default-language
// entries filling gaps.
func (c *Catalog) Messages(lang string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.messages[DefaultLang]))
	for id, v := range c.messages[DefaultLang] {
		out[id] = v
	}
	if m, ok := c.messages[normalize(lang)]; ok {
		for id, v := range m {
			out[id] = v
		}
	}
	return out
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	// "de-DE" selects the "de" catalog.
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
