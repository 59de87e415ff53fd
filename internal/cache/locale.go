package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/tarkov-dev/site/pkg/core"
)

// LocaleTable maps language codes to translated names keyed by record id.
// Fetches for different languages fill it concurrently.
type LocaleTable struct {
	mu    sync.RWMutex
	langs map[string]map[string]core.LocalizedName
}

// NewLocaleTable creates a new LocaleTable
func NewLocaleTable() *LocaleTable {
	return &LocaleTable{
		langs: make(map[string]map[string]core.LocalizedName),
	}
}

// Get retrieves the translated name of id in lang
func (c *LocaleTable) Get(lang, id string) (core.LocalizedName, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.langs[lang][id]
	return name, ok
}

// Set stores one translated name
func (c *LocaleTable) Set(lang, id string, name core.LocalizedName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.langs[lang]
	if !ok {
		table = make(map[string]core.LocalizedName)
		c.langs[lang] = table
	}
	table[id] = name
}

// SetLanguage replaces the whole table of one language
func (c *LocaleTable) SetLanguage(lang string, names map[string]core.LocalizedName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.langs[lang] = maps.Clone(names)
}

// Languages returns the stored language codes in sorted order
func (c *LocaleTable) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.langs))
}

// Snapshot returns a deep copy suitable for serialization
func (c *LocaleTable) Snapshot() map[string]map[string]core.LocalizedName {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]core.LocalizedName, len(c.langs))
	for lang, table := range c.langs {
		out[lang] = maps.Clone(table)
	}
	return out
}

// Reset clears all languages from the table
func (c *LocaleTable) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.langs = make(map[string]map[string]core.LocalizedName)
}
