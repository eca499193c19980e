package corpus

import "fmt"

// Store persists corpus entries. Load must return entries in the order
// they were first written so that insertion ranks survive restarts.
type Store interface {
	Load() ([]Entry, error)
	Append(Entry) error
	Rewrite([]Entry) error
	Close() error
}

// DriverType identifies a corpus storage backend.
type DriverType string

const (
	// DriverJSON stores the corpus as a single JSON document.
	DriverJSON DriverType = "json"

	// DriverSQLite stores the corpus in a SQLite database.
	DriverSQLite DriverType = "sqlite"
)

// OpenStore opens the corpus store for the given driver and path. An
// empty driver defaults to JSON, which is the interchange format the
// extraction and matching tools share.
func OpenStore(driver DriverType, path string) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return OpenJSONStore(path)
	case DriverSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown corpus driver: %s", driver)
	}
}
