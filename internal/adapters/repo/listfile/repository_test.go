package listfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

var testNow = time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)

func newTestRepository(t *testing.T, kind domain.ListKind) (*Repository, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	repo, err := NewRepository(kind, filepath.Join(t.TempDir(), string(kind)+"list.dat"), fixedClock{now: testNow}, logger)
	require.NoError(t, err)

	return repo, hook
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRepositoryLoadParsesListFile(t *testing.T) {
	t.Parallel()

	repo, hook := newTestRepository(t, domain.ListBlock)
	writeFile(t, repo.Path(), "# comment\n"+
		"^555;p;telemarketer\n"+
		"^800;;toll free\r\n"+
		"a\\;b;;semicolon;in;note\n"+
		"\n"+
		"(unclosed;;bad\n"+
		"^V\\d+;P;\n"+
		"^bare\n")

	list, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"^555", "^800", "a;b", `^V\d+`, "^bare"}, patternsOf(list))

	entry, _ := list.Get("^555")
	assert.True(t, entry.Permanent)
	assert.Equal(t, "telemarketer", entry.Note)
	assert.Equal(t, domain.NewTimestamp(testNow), entry.LastMatched)
	assert.Zero(t, entry.MatchCount)

	entry, _ = list.Get("a;b")
	assert.False(t, entry.Permanent)
	assert.Equal(t, "semicolon;in;note", entry.Note)
	assert.True(t, entry.Matches("A;B"))

	entry, _ = list.Get(`^V\d+`)
	assert.True(t, entry.Permanent)

	_, ok := list.Get("(unclosed")
	assert.False(t, ok)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "invalid regular expression, skipping entry", hook.LastEntry().Message)
}

func TestRepositoryLoadOverlaysMatchHistory(t *testing.T) {
	t.Parallel()

	repo, hook := newTestRepository(t, domain.ListBlock)
	writeFile(t, repo.Path(), "^555;;\n^800;;\na\\;b;;\n")
	writeFile(t, repo.MatchPath(), "2026-01-01 10:00;3;^555\n"+
		"garbage\n"+
		"2026-02-01 11:00;x;^800\n"+
		"2026-03-01 12:00;2;^gone\n"+
		"2026-04-01 13:00;5;a;b\n")

	list, err := repo.Load(context.Background())
	require.NoError(t, err)

	entry, _ := list.Get("^555")
	assert.Equal(t, domain.Timestamp("2026-01-01 10:00"), entry.LastMatched)
	assert.Equal(t, 3, entry.MatchCount)

	entry, _ = list.Get("^800")
	assert.Equal(t, domain.NewTimestamp(testNow), entry.LastMatched)
	assert.Zero(t, entry.MatchCount)

	entry, _ = list.Get("a;b")
	assert.Equal(t, 5, entry.MatchCount)

	_, ok := list.Get("^gone")
	assert.False(t, ok)
	assert.Equal(t, 3, list.Len())

	warnings := 0
	for _, logged := range hook.AllEntries() {
		if logged.Message == "invalid line in match file" {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestRepositoryLoadToleratesMissingFiles(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, domain.ListAllow)

	list, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ListAllow, list.Kind)
	assert.Zero(t, list.Len())

	writeFile(t, repo.Path(), "^mom;;\n")
	list, err = repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
}

func TestRepositoryMatchHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, domain.ListBlock)
	writeFile(t, repo.Path(), "^555;;\n^800;p;\nx\\;y;;\n")
	writeFile(t, repo.MatchPath(), "2026-01-01 10:00;3;^555\n")

	list, err := repo.Load(context.Background())
	require.NoError(t, err)

	_, ok := list.MatchBoth("5551234", "", "2026-10-17 08:00")
	require.True(t, ok)
	_, ok = list.MatchBoth("", "X;Y CORP", "2026-10-17 08:05")
	require.True(t, ok)

	require.NoError(t, repo.SaveMatches(context.Background(), list))
	assert.Equal(t, "2026-10-17 08:00;4;^555\n"+
		"2026-10-17 12:30;0;^800\n"+
		"2026-10-17 08:05;1;x;y\n", readFile(t, repo.MatchPath()))

	reloaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, list.Len(), reloaded.Len())
	for _, want := range list.Entries() {
		got, ok := reloaded.Get(want.Pattern)
		require.True(t, ok, want.Pattern)
		assert.Equal(t, want.LastMatched, got.LastMatched, want.Pattern)
		assert.Equal(t, want.MatchCount, got.MatchCount, want.Pattern)
	}
}

func TestRepositoryAppendEscapesAndTerminatesPreviousLine(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, domain.ListBlock)
	writeFile(t, repo.Path(), "^555;;no newline")

	entry, err := domain.NewPatternEntry("a;b", false, domain.UserAddedNote, domain.NewTimestamp(testNow))
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), entry))

	assert.Equal(t, "^555;;no newline\na\\;b;;added by user * key\n", readFile(t, repo.Path()))

	list, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"^555", "a;b"}, patternsOf(list))
}

func TestRepositoryAppendCreatesMissingFile(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, domain.ListAllow)

	entry, err := domain.NewPatternEntry("^mom", true, "family", "")
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), entry))

	assert.Equal(t, "^mom;p;family\n", readFile(t, repo.Path()))
}

func TestRepositoryHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, domain.ListBlock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.SaveMatches(ctx, domain.NewPatternList(domain.ListBlock)), context.Canceled)
}

func patternsOf(list *domain.PatternList) []string {
	out := make([]string, 0, list.Len())
	for _, entry := range list.Entries() {
		out = append(out, entry.Pattern)
	}
	return out
}
