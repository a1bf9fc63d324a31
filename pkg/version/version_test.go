package version

import "testing"

func setBuildInfo(t *testing.T, newTag, newCommit, newDate string) {
	t.Helper()
	oldTag, oldCommit, oldDate := tag, commit, date
	tag, commit, date = newTag, newCommit, newDate
	t.Cleanup(func() { tag, commit, date = oldTag, oldCommit, oldDate })
}

func TestStringPrefersTag(t *testing.T) {
	setBuildInfo(t, "v1.2.3", "abc1234", "2026-01-01")
	if got := String(); got != "v1.2.3" {
		t.Fatalf("String() = %q, want v1.2.3", got)
	}
}

func TestStringFallsBackToCommit(t *testing.T) {
	setBuildInfo(t, "", "abc1234", "2026-01-01")
	if got := String(); got != "abc1234" {
		t.Fatalf("String() = %q, want abc1234", got)
	}
}

func TestFull(t *testing.T) {
	setBuildInfo(t, "v1.2.3", "abc1234", "2026-01-01")
	if got := Full(); got != "v1.2.3 (abc1234) built 2026-01-01" {
		t.Fatalf("Full() = %q", got)
	}

	setBuildInfo(t, "", "unknown", "unknown")
	if got := Full(); got != "dev" {
		t.Fatalf("Full() = %q, want dev for a local build", got)
	}
}
