// Package tracker is the per-document ledger of committed labels. It
// records what the resolution protocol decided, in order, and answers
// usage queries; it never enforces anything itself. Uniqueness is the
// protocol's job, and the end-of-run report checks it against this
// ledger. One tracker serves one document on one goroutine.
package tracker

// Assignment is one committed field-to-label binding.
type Assignment struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
}

// Tracker counts label usage within a single document.
type Tracker struct {
	counts      map[string]int
	assignments []Assignment
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// IsUsed reports whether the label has been committed in this document
// and how many times.
func (t *Tracker) IsUsed(label string) (bool, int) {
	n := t.counts[label]
	return n > 0, n
}

// Record commits a field-to-label binding. It never fails and never
// rejects: a duplicate label is recorded with an elevated count and
// surfaces in the report.
func (t *Tracker) Record(fieldID, label string) {
	t.counts[label]++
	t.assignments = append(t.assignments, Assignment{FieldID: fieldID, Label: label})
}

// Snapshot returns a copy of the per-label commit counts.
func (t *Tracker) Snapshot() map[string]int {
	out := make(map[string]int, len(t.counts))
	for label, n := range t.counts {
		out[label] = n
	}
	return out
}

// Assignments returns the committed bindings in commit order.
func (t *Tracker) Assignments() []Assignment {
	out := make([]Assignment, len(t.assignments))
	copy(out, t.assignments)
	return out
}

// Len returns the number of committed bindings.
func (t *Tracker) Len() int {
	return len(t.assignments)
}
