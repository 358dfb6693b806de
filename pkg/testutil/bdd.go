package testutil

import "testing"

// Given opens a scenario block. When and Then nest inside it so a failing
// subtest reads as a sentence.
func Given(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Given", desc, fn) }

// When describes the action under test inside a Given block.
func When(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "When", desc, fn) }

// Then asserts the observable outcome of a When block.
func Then(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Then", desc, fn) }

func step(t *testing.T, word, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(word+" "+desc, fn)
}
