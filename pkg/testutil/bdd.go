package testutil

import "testing"

// Given, When and Then nest t.Run calls so scenario steps read as prose in
// test output, e.g. "Given_a_locked_account/When_they_retry/Then_...".
func Given(t *testing.T, context string, steps func(t *testing.T)) {
	t.Helper()
	step(t, "Given", context, steps)
}

func When(t *testing.T, action string, steps func(t *testing.T)) {
	t.Helper()
	step(t, "When", action, steps)
}

func Then(t *testing.T, outcome string, check func(t *testing.T)) {
	t.Helper()
	step(t, "Then", outcome, check)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
