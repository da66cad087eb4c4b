package testutil

import "testing"

// Given, When, and Then wrap subtests so vote-to-match flows read as
// scenarios in plain go test output; the godog suite in e2e/ covers the
// full-stack cases.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
