package envutil

import (
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Setenv("SF_TEST_STR", "  value ")
	t.Setenv("SF_TEST_INT", "42")
	t.Setenv("SF_TEST_BAD_INT", "forty")
	t.Setenv("SF_TEST_BOOL", "yes")
	t.Setenv("SF_TEST_DUR", "90s")
	t.Setenv("SF_TEST_DUR_SECS", "30")

	if got := String("SF_TEST_STR", "def"); got != "value" {
		t.Fatalf("String: got %q", got)
	}
	if got := String("SF_TEST_MISSING", "def"); got != "def" {
		t.Fatalf("String default: got %q", got)
	}
	if got := Int("SF_TEST_INT", 1); got != 42 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("SF_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if !Bool("SF_TEST_BOOL", false) {
		t.Fatalf("Bool: expected true")
	}
	if got := Duration("SF_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration: got %v", got)
	}
	if got := Duration("SF_TEST_DUR_SECS", time.Second); got != 30*time.Second {
		t.Fatalf("Duration secs: got %v", got)
	}
}
