package resolve

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes resolution failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindOracleTimeout
	KindOracleMalformed
	KindUniquenessConflict
	KindCorpusWriteConflict
	KindResolutionFailed
)

// String returns the wire name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindOracleTimeout:
		return "ORACLE_TIMEOUT"
	case KindOracleMalformed:
		return "ORACLE_MALFORMED"
	case KindUniquenessConflict:
		return "UNIQUENESS_CONFLICT"
	case KindCorpusWriteConflict:
		return "CORPUS_WRITE_CONFLICT"
	case KindResolutionFailed:
		return "RESOLUTION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether the protocol has a recovery path for
// this kind. Timeouts and malformed verdicts retry, conflicts re-enter
// with adjusted candidates; an exhausted field and a failed corpus
// write have no path left.
func (k ErrorKind) IsRecoverable() bool {
	switch k {
	case KindOracleTimeout, KindOracleMalformed, KindUniquenessConflict:
		return true
	default:
		return false
	}
}

// ResolveError is a categorized failure while resolving one field.
type ResolveError struct {
	Kind     ErrorKind `json:"kind"`
	FieldID  string    `json:"field_id,omitempty"`
	Label    string    `json:"label,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
	Err      error     `json:"-"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("[%s]", e.Kind)
	if e.FieldID != "" {
		msg += " field " + e.FieldID
	}
	if e.Label != "" {
		msg += fmt.Sprintf(" label %q", e.Label)
	}
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *ResolveError) Unwrap() error { return e.Err }

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}
