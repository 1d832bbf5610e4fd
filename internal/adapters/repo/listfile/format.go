package listfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jfcl7/jcblock/internal/domain"
)

const (
	fieldSeparator   = ";"
	escapedSeparator = `\;`
	commentPrefix    = "#"
)

type listLine struct {
	pattern string
	flags   string
	note    string
}

type matchLine struct {
	lastMatched domain.Timestamp
	count       int
	pattern     string
}

// splitPattern splits a list line on ";" and rejoins fields whose separator
// was escaped as "\;". Load and purge both go through it so they agree on
// pattern identity.
func splitPattern(line string) (string, []string) {
	fields := strings.Split(line, fieldSeparator)
	pattern, rest := fields[0], fields[1:]
	for strings.HasSuffix(pattern, `\`) && len(rest) > 0 {
		pattern = pattern[:len(pattern)-1] + fieldSeparator + rest[0]
		rest = rest[1:]
	}

	return pattern, rest
}

func parseListLine(raw string) (listLine, bool) {
	raw = trimEOL(raw)
	if raw == "" || strings.HasPrefix(raw, commentPrefix) {
		return listLine{}, false
	}

	pattern, rest := splitPattern(raw)
	if pattern == "" {
		return listLine{}, false
	}

	line := listLine{pattern: pattern}
	if len(rest) > 0 {
		line.flags = rest[0]
		line.note = strings.Join(rest[1:], fieldSeparator)
	}

	return line, true
}

func formatListLine(entry *domain.PatternEntry) string {
	flags := ""
	if entry.Permanent {
		flags = "p"
	}

	return strings.ReplaceAll(entry.Pattern, fieldSeparator, escapedSeparator) +
		fieldSeparator + flags + fieldSeparator + entry.Note
}

// parseMatchLine reads "timestamp;count;pattern". The pattern is the raw
// remainder and may itself contain ";".
func parseMatchLine(raw string) (matchLine, error) {
	fields := strings.SplitN(trimEOL(raw), fieldSeparator, 3)
	if len(fields) != 3 {
		return matchLine{}, fmt.Errorf("expected timestamp;count;pattern, got %d fields", len(fields))
	}

	count, err := strconv.Atoi(fields[1])
	if err != nil {
		return matchLine{}, fmt.Errorf("parse count: %w", err)
	}
	if count < 0 {
		return matchLine{}, fmt.Errorf("negative count %d", count)
	}

	return matchLine{
		lastMatched: domain.Timestamp(fields[0]),
		count:       count,
		pattern:     fields[2],
	}, nil
}

func formatMatchLine(entry *domain.PatternEntry) string {
	return string(entry.LastMatched) + fieldSeparator + strconv.Itoa(entry.MatchCount) + fieldSeparator + entry.Pattern
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
