package listfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/sirupsen/logrus"
)

// Purge comments out list lines whose entries have not matched within
// lifetime and drops them from list. The previous file is kept at
// BackupPath. The list file is rewritten only when something was purged.
func (r *Repository) Purge(ctx context.Context, list *domain.PatternList, lifetime time.Duration, now time.Time) ([]domain.PurgedEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s list for purge: %w", r.kind, err)
	}

	r.logger.WithField("lifetime", lifetime).Info("purging entries not matched within lifetime")

	var (
		purged []domain.PurgedEntry
		out    strings.Builder
	)
	for _, line := range splitLinesKeepEOL(string(data)) {
		if !strings.HasPrefix(line, commentPrefix) {
			if entry, ok := r.purgeCandidate(list, line, lifetime, now); ok {
				gone := domain.PurgedEntry{
					Pattern:     entry.Pattern,
					LastMatched: entry.LastMatched,
					MatchCount:  entry.MatchCount,
				}
				line = gone.PurgeAnnotation(r.kind) + line
				list.Delete(entry.Pattern)
				purged = append(purged, gone)

				r.logger.WithFields(logrus.Fields{
					"pattern": gone.Pattern,
					"last":    gone.LastMatched,
					"count":   gone.MatchCount,
				}).Info("removed entry from list")
			}
		}
		out.WriteString(line)
	}

	if len(purged) == 0 {
		return nil, nil
	}

	if err := r.replaceWithBackup([]byte(out.String())); err != nil {
		return purged, err
	}

	return purged, nil
}

func (r *Repository) purgeCandidate(list *domain.PatternList, line string, lifetime time.Duration, now time.Time) (*domain.PatternEntry, bool) {
	pattern, _ := splitPattern(trimEOL(line))
	entry, ok := list.Get(pattern)
	if !ok {
		return nil, false
	}

	r.logger.WithFields(logrus.Fields{
		"pattern": entry.Pattern,
		"last":    entry.LastMatched,
		"count":   entry.MatchCount,
	}).Debug("checking list entry age")

	expired, err := entry.Expired(now, lifetime)
	if err != nil {
		r.logger.WithError(err).Warn("cannot age list entry, keeping it")
		return nil, false
	}

	return entry, expired
}

func (r *Repository) replaceWithBackup(data []byte) error {
	backup := r.BackupPath()
	if err := os.Remove(backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old %s list backup: %w", r.kind, err)
	}

	if err := os.Rename(r.path, backup); err != nil {
		return fmt.Errorf("back up %s list: %w", r.kind, err)
	}

	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("rewrite purged %s list (previous copy at %s): %w", r.kind, backup, err)
	}

	return nil
}

func splitLinesKeepEOL(data string) []string {
	lines := strings.SplitAfter(data, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
