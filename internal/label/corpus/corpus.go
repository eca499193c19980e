// Package corpus maintains the canonical label list shared by every
// document resolution run. Labels are append-only and unique; the order
// they were first loaded or appended in is preserved and observable,
// because downstream ranking uses it to break score ties.
package corpus

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicate is returned when appending a label that is already present.
var ErrDuplicate = errors.New("label already exists in corpus")

// Entry is one canonical label together with its metadata.
type Entry struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Contexts    []string `json:"contexts,omitempty"`
}

// Corpus holds the canonical label set in insertion order. Appends are
// serialized through a write lock and persisted before they become
// visible; lookups run concurrently under the read lock.
type Corpus struct {
	mu      sync.RWMutex
	entries []Entry
	byLabel map[string]int
	store   Store
}

// New creates an empty in-memory corpus with no backing store.
func New() *Corpus {
	return &Corpus{byLabel: make(map[string]int)}
}

// Load reads all entries from the store and returns a corpus backed by
// it. Entries arrive in the store's load order; duplicates in the store
// are rejected rather than silently collapsed.
func Load(store Store) (*Corpus, error) {
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	c := &Corpus{
		entries: make([]Entry, 0, len(entries)),
		byLabel: make(map[string]int, len(entries)),
		store:   store,
	}
	for _, e := range entries {
		if _, exists := c.byLabel[e.Label]; exists {
			return nil, fmt.Errorf("load corpus: entry %q: %w", e.Label, ErrDuplicate)
		}
		c.byLabel[e.Label] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Append adds a new label to the corpus and persists it. The label must
// be syntactically valid and not already present. When persistence
// fails the in-memory state is left untouched.
func (c *Corpus) Append(e Entry) error {
	if err := Validate(e.Label); err != nil {
		return fmt.Errorf("append to corpus: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byLabel[e.Label]; exists {
		return fmt.Errorf("append %q: %w", e.Label, ErrDuplicate)
	}
	if c.store != nil {
		if err := c.store.Append(e); err != nil {
			return fmt.Errorf("persist %q: %w", e.Label, err)
		}
	}
	c.byLabel[e.Label] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Has reports whether the label is present.
func (c *Corpus) Has(label string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byLabel[label]
	return ok
}

// Get returns the entry for a label.
func (c *Corpus) Get(label string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byLabel[label]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// Labels returns all labels in insertion order.
func (c *Corpus) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	labels := make([]string, len(c.entries))
	for i, e := range c.entries {
		labels[i] = e.Label
	}
	return labels
}

// Entries returns a copy of all entries in insertion order. The slice
// index of an entry is its insertion rank.
func (c *Corpus) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of labels in the corpus.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
