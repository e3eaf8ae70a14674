package testutil

import (
	"testing"
	"time"
)

// Day parses a YYYY-MM-DD logical date or fails the test.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing day %q: %v", s, err)
	}
	return d
}
