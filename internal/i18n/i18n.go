// Package i18n resolves the reader's language and serves the bilingual UI
// strings (error messages, category labels) from embedded YAML catalogs.
// Article bodies are bilingual at the data level; this package only covers
// the strings the service itself emits.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

const (
	LangEN = "en"
	LangPT = "pt"
)

// DefaultLang is the site's primary language and the fallback for every
// unknown or missing preference.
const DefaultLang = LangEN

// Supported reports whether lang is one of the site languages.
func Supported(lang string) bool {
	return lang == LangEN || lang == LangPT
}

// Translator holds the loaded catalogs.  Lookups fall back to the default
// language and finally to the key itself, so a missing translation shows
// up in the UI instead of hiding.
type Translator struct {
	catalogs map[string]map[string]string
}

// New loads every embedded catalog.  A malformed catalog is a build
// artifact problem and fails loudly.
func New() (*Translator, error) {
	t := &Translator{catalogs: make(map[string]map[string]string)}
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		lang := strings.TrimSuffix(name, ".yaml")
		raw, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read catalog %s: %w", name, err)
		}
		catalog := map[string]string{}
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("i18n: parse catalog %s: %w", name, err)
		}
		t.catalogs[lang] = catalog
	}
	if _, ok := t.catalogs[DefaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default catalog %q missing", DefaultLang)
	}
	return t, nil
}

// T translates key for lang.
func (t *Translator) T(lang, key string) string {
	if c, ok := t.catalogs[lang]; ok {
		if v, ok := c[key]; ok {
			return v
		}
	}
	if v, ok := t.catalogs[DefaultLang][key]; ok {
		return v
	}
	return key
}
