package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type ListKind string

const (
	ListAllow ListKind = "allow"
	ListBlock ListKind = "block"
)

const UserAddedNote = "added by user * key"

func ParseListKind(raw string) (ListKind, error) {
	switch ListKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ListAllow:
		return ListAllow, nil
	case ListBlock:
		return ListBlock, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownList, raw)
	}
}

// PastTense is used in purge annotations ("last blocked on ...").
func (k ListKind) PastTense() string {
	switch k {
	case ListAllow:
		return "allowed"
	case ListBlock:
		return "blocked"
	default:
		return "matched"
	}
}

type PatternEntry struct {
	Pattern     string
	Matcher     *regexp.Regexp
	Permanent   bool
	Note        string
	LastMatched Timestamp
	MatchCount  int
}

// CompilePattern builds the case-insensitive, start-anchored matcher for a
// list pattern. The pattern need not consume the whole candidate.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}

	return re, nil
}

func NewPatternEntry(pattern string, permanent bool, note string, lastMatched Timestamp) (*PatternEntry, error) {
	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	return &PatternEntry{
		Pattern:     pattern,
		Matcher:     matcher,
		Permanent:   permanent,
		Note:        note,
		LastMatched: lastMatched,
	}, nil
}

func (e *PatternEntry) Matches(candidate string) bool {
	return e.Matcher.MatchString(candidate)
}

// ParseFlags reports whether a flags field marks an entry as never purged.
func ParseFlags(flags string) bool {
	return strings.ContainsAny(flags, "pP")
}
