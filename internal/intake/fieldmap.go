// Package intake turns raw form platform entries into normalized submissions.
package intake

import (
	"github.com/wikimedia/contest-api/internal/types"
)

// Entry values keyed by resolved field label
type CanonicalRecord map[string]*string

// Ordered key -> label table derived from a form schema
type keyTable struct {
	keys   []string
	labels map[string]string
}

func (t *keyTable) set(key, label string) {
	if _, ok := t.labels[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.labels[key] = label
}

func buildKeyTable(schema types.FormSchema) *keyTable {
	table := &keyTable{labels: make(map[string]string)}

	for _, field := range schema.Fields {
		if len(field.Inputs) == 0 {
			table.set(field.ID, field.ResolvedLabel())
			continue
		}

		for _, input := range field.Inputs {
			if input.Key == "" {
				continue
			}
			table.set(input.Key, input.Label)
		}
	}

	return table
}

// Resolves an entry against the schema of the form it was submitted through.
//
// Only keys known to the schema and present in the entry are kept. When two keys
// resolve to the same label the later one in schema order wins.
func Resolve(schema types.FormSchema, entry types.RawEntry) CanonicalRecord {
	table := buildKeyTable(schema)

	record := make(CanonicalRecord, len(entry))
	for _, key := range table.keys {
		value, ok := entry[key]
		if !ok {
			continue
		}
		record[table.labels[key]] = value
	}

	return record
}

// Value for `label`, ok is false when the label is absent or null
func (r CanonicalRecord) Lookup(label string) (string, bool) {
	value, ok := r[label]
	if !ok || value == nil {
		return "", false
	}

	return *value, true
}

func (r CanonicalRecord) stringOr(label, fallback string) string {
	if value, ok := r.Lookup(label); ok {
		return value
	}

	return fallback
}
