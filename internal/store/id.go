package store

import "github.com/google/uuid"

// newUUID generates IDs in application code so the same insert path
// serves both dialects (SQLite has no UUID default).
func newUUID() string {
	return uuid.New().String()
}
