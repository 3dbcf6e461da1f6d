package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Table)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered or the
// definition is malformed; table definitions are program constants and a bad
// one is a programming error.
func Register(t Table) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[t.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", t.Key))
	}
	if t.Name == "" || len(t.Fields) == 0 {
		panic(fmt.Sprintf("incomplete table definition: %s", t.Key))
	}
	seen := make(map[string]bool, len(t.Fields)+len(t.Derived))
	for _, f := range t.Fields {
		col := f.dbColumn()
		if col == "" {
			panic(fmt.Sprintf("table %s: field %q maps to an empty column name", t.Key, f.Column))
		}
		if seen[col] {
			panic(fmt.Sprintf("table %s: duplicate destination column %q", t.Key, col))
		}
		seen[col] = true
	}
	for _, d := range t.Derived {
		if d.DBColumn == "" || d.Compute == nil {
			panic(fmt.Sprintf("table %s: incomplete derived column definition", t.Key))
		}
		if seen[d.DBColumn] {
			panic(fmt.Sprintf("table %s: duplicate destination column %q", t.Key, d.DBColumn))
		}
		seen[d.DBColumn] = true
	}

	registry[t.Key] = t
}

// Get returns a table definition by key.
func Get(key string) (Table, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[key]
	return t, ok
}

// All returns all registered table definitions, sorted by key.
func All() []Table {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Table, 0, len(registry))
	for _, t := range registry {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Keys returns all registered table keys, sorted.
func Keys() []string {
	all := All()
	keys := make([]string, len(all))
	for i, t := range all {
		keys[i] = t.Key
	}
	return keys
}

// Count returns the number of registered tables.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables. Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Table)
}
