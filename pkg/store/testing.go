package store

import (
	"path/filepath"
	"testing"
)

// NewTestStore opens a throwaway database in the test's temp directory.
func NewTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
