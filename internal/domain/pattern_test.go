package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePatternIsCaseInsensitiveAndStartAnchored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pattern   string
		candidate string
		want      bool
	}{
		{name: "prefix match", pattern: "abc", candidate: "ABCDEF", want: true},
		{name: "not anchored elsewhere", pattern: "abc", candidate: "xabc", want: false},
		{name: "alternation stays anchored", pattern: "555|777", candidate: "1777", want: false},
		{name: "alternation second branch", pattern: "555|777", candidate: "7771234", want: true},
		{name: "explicit caret", pattern: `^\d{3}$`, candidate: "123", want: true},
		{name: "name pattern", pattern: `^\w+\s+\w\w$`, candidate: "Springfield IL", want: true},
		{name: "literal semicolon", pattern: "a;b", candidate: "A;Bc", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			re, err := CompilePattern(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.want, re.MatchString(tc.candidate))
		})
	}
}

func TestCompilePatternRejectsInvalidAndEmpty(t *testing.T) {
	t.Parallel()

	_, err := CompilePattern("(unclosed")
	require.ErrorIs(t, err, ErrInvalidPattern)

	_, err = CompilePattern("")
	require.ErrorIs(t, err, ErrEmptyPattern)
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseFlags("p"))
	assert.True(t, ParseFlags("  P  "))
	assert.False(t, ParseFlags(""))
	assert.False(t, ParseFlags("x"))
}

func TestParseListKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseListKind(" Block ")
	require.NoError(t, err)
	assert.Equal(t, ListBlock, kind)

	_, err = ParseListKind("grey")
	assert.ErrorIs(t, err, ErrUnknownList)
}

func TestPatternListMatchOneUpdatesFirstHitOnly(t *testing.T) {
	t.Parallel()

	list := mustList(t, ListBlock, "^555", "^5")

	entry, ok := list.MatchOne("5551234", "2026-03-01 10:15")
	require.True(t, ok)
	assert.Equal(t, "^555", entry.Pattern)
	assert.Equal(t, 1, entry.MatchCount)
	assert.Equal(t, Timestamp("2026-03-01 10:15"), entry.LastMatched)

	other, _ := list.Get("^5")
	assert.Zero(t, other.MatchCount)
}

func TestPatternListMatchBothFallsBackToName(t *testing.T) {
	t.Parallel()

	list := mustList(t, ListAllow, "^mom")

	entry, ok := list.MatchBoth("3125550000", "MOM CELL", "2026-03-01 10:15")
	require.True(t, ok)
	assert.Equal(t, "^mom", entry.Pattern)

	_, ok = list.MatchBoth("3125550000", "DAD", "2026-03-01 10:16")
	assert.False(t, ok)
	assert.Equal(t, 1, entry.MatchCount)
}

func TestPatternListMatchBothPrefersNumber(t *testing.T) {
	t.Parallel()

	list := mustList(t, ListBlock, "^V", "^800")

	entry, ok := list.MatchBoth("8005551212", "V1234", "2026-03-01 10:15")
	require.True(t, ok)
	assert.Equal(t, "^800", entry.Pattern)
}

func TestPatternListFindDoesNotRecord(t *testing.T) {
	t.Parallel()

	list := mustList(t, ListBlock, "^555")

	entry, ok := list.FindBoth("", "5551234")
	require.True(t, ok)
	assert.Zero(t, entry.MatchCount)
}

func TestPatternListPutKeepsOrderAndDelete(t *testing.T) {
	t.Parallel()

	list := mustList(t, ListBlock, "a", "b", "c")

	replacement, err := NewPatternEntry("b", true, "again", "")
	require.NoError(t, err)
	list.Put(replacement)

	assert.Equal(t, []string{"a", "b", "c"}, patterns(list))
	got, _ := list.Get("b")
	assert.True(t, got.Permanent)

	assert.True(t, list.Delete("a"))
	assert.False(t, list.Delete("a"))
	assert.Equal(t, []string{"b", "c"}, patterns(list))
	assert.Equal(t, 2, list.Len())
}

func mustList(t *testing.T, kind ListKind, patterns ...string) *PatternList {
	t.Helper()

	list := NewPatternList(kind)
	for _, pattern := range patterns {
		entry, err := NewPatternEntry(pattern, false, "", "2026-01-01 00:00")
		require.NoError(t, err)
		list.Put(entry)
	}

	return list
}

func patterns(list *PatternList) []string {
	out := make([]string, 0, list.Len())
	for _, entry := range list.Entries() {
		out = append(out, entry.Pattern)
	}
	return out
}

func TestPatternEntryExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	lifetime := 30 * 24 * time.Hour

	old, err := NewPatternEntry("^555", false, "", "2026-08-01 12:00")
	require.NoError(t, err)
	expired, err := old.Expired(now, lifetime)
	require.NoError(t, err)
	assert.True(t, expired)

	old.Permanent = true
	expired, err = old.Expired(now, lifetime)
	require.NoError(t, err)
	assert.False(t, expired)

	fresh, err := NewPatternEntry("^666", false, "", "2026-10-01 12:00")
	require.NoError(t, err)
	expired, err = fresh.Expired(now, lifetime)
	require.NoError(t, err)
	assert.False(t, expired)

	garbled, err := NewPatternEntry("^777", false, "", "whenever")
	require.NoError(t, err)
	_, err = garbled.Expired(now, lifetime)
	assert.Error(t, err)
}

func TestPurgedEntryAnnotation(t *testing.T) {
	t.Parallel()

	purged := PurgedEntry{Pattern: "^555", LastMatched: "2026-01-02 03:04", MatchCount: 7}
	assert.Equal(t, "# last blocked on 2026-01-02 03:04 count 7 #", purged.PurgeAnnotation(ListBlock))
}
