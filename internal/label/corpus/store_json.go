package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// corpusDocument is the on-disk JSON layout. The label array is kept as
// raw JSON because two shapes are accepted on read: the current array of
// entry objects and the legacy bare string array.
type corpusDocument struct {
	Labels   json.RawMessage `json:"standardized_field_labels"`
	Metadata corpusMetadata  `json:"metadata"`
}

type corpusMetadata struct {
	TotalLabels int `json:"total_labels"`
}

// JSONStore persists the corpus as a single JSON document. Every append
// rewrites the file through a temporary sibling and rename, so a reader
// never observes a partially written corpus.
type JSONStore struct {
	path    string
	entries []Entry
}

// OpenJSONStore opens (or prepares to create) a JSON corpus file.
func OpenJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("json corpus store: path is empty")
	}
	return &JSONStore{path: path}, nil
}

// Load reads the corpus file. A missing file is an empty corpus; the
// file is created on the first append.
func (s *JSONStore) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.entries = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var doc corpusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", s.path, err)
	}

	entries, err := decodeLabelArray(doc.Labels)
	if err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", s.path, err)
	}
	s.entries = entries

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// decodeLabelArray accepts both entry objects and the legacy bare
// string form.
func decodeLabelArray(raw json.RawMessage) ([]Entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("label array is neither entries nor strings: %w", err)
	}
	entries = make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Label: name}
	}
	return entries, nil
}

// Append adds one entry and flushes the whole document.
func (s *JSONStore) Append(e Entry) error {
	s.entries = append(s.entries, e)
	if err := s.flush(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	return nil
}

// Rewrite replaces the stored entries wholesale.
func (s *JSONStore) Rewrite(entries []Entry) error {
	previous := s.entries
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
	if err := s.flush(); err != nil {
		s.entries = previous
		return err
	}
	return nil
}

// Close is a no-op for the JSON store.
func (s *JSONStore) Close() error { return nil }

// Path returns the corpus file location.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) flush() error {
	labels, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode corpus labels: %w", err)
	}
	doc := corpusDocument{
		Labels:   labels,
		Metadata: corpusMetadata{TotalLabels: len(s.entries)},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp corpus file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write corpus file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp corpus file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace corpus file: %w", err)
	}
	return nil
}
