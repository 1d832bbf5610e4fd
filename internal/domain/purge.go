package domain

import (
	"fmt"
	"time"
)

type PurgedEntry struct {
	Pattern     string
	LastMatched Timestamp
	MatchCount  int
}

// Expired reports whether a non-permanent entry has gone unmatched for longer
// than lifetime. An unreadable timestamp is returned as an error and never
// expires the entry.
func (e *PatternEntry) Expired(now time.Time, lifetime time.Duration) (bool, error) {
	if e.Permanent {
		return false, nil
	}

	last, err := e.LastMatched.Time(now.Location())
	if err != nil {
		return false, fmt.Errorf("parse last match of %q: %w", e.Pattern, err)
	}

	return now.Sub(last) > lifetime, nil
}

// PurgeAnnotation is the comment prefix written in front of a purged list line.
func (e PurgedEntry) PurgeAnnotation(kind ListKind) string {
	return fmt.Sprintf("# last %s on %s count %d #", kind.PastTense(), e.LastMatched, e.MatchCount)
}
