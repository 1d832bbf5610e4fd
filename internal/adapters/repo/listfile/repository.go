package listfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
)

const (
	listFileMode   = 0o644
	listDirMode    = 0o755
	matchSuffix    = "-match"
	backupSuffix   = "-backup"
	maxLineScanned = 1 << 20
)

// Repository persists one allow or block list as a "<name>.dat" definition
// file plus a "<name>.dat-match" history file.
type Repository struct {
	kind   domain.ListKind
	path   string
	clock  ports.Clock
	logger logrus.FieldLogger
}

var _ ports.PatternRepository = (*Repository)(nil)

func NewRepository(kind domain.ListKind, path string, clock ports.Clock, logger logrus.FieldLogger) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s list path is empty", kind)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s list path: %w", kind, err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{
		kind:   kind,
		path:   absPath,
		clock:  clock,
		logger: logger.WithFields(logrus.Fields{"list": string(kind), "path": absPath}),
	}, nil
}

func (r *Repository) Kind() domain.ListKind {
	return r.kind
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) MatchPath() string {
	return r.path + matchSuffix
}

func (r *Repository) BackupPath() string {
	return r.path + backupSuffix
}

func (r *Repository) Load(ctx context.Context) (*domain.PatternList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := domain.NewPatternList(r.kind)
	loadedAt := domain.NewTimestamp(r.clock.Now())

	err := scanFile(r.path, func(raw string) {
		line, ok := parseListLine(raw)
		if !ok {
			return
		}

		entry, err := domain.NewPatternEntry(line.pattern, domain.ParseFlags(line.flags), line.note, loadedAt)
		if err != nil {
			r.logger.WithError(err).WithField("pattern", line.pattern).Warn("invalid regular expression, skipping entry")
			return
		}
		list.Put(entry)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("list file not found")
			return list, nil
		}
		return nil, fmt.Errorf("read %s list: %w", r.kind, err)
	}

	if err := r.loadMatches(ctx, list); err != nil {
		return nil, err
	}

	for _, entry := range list.Entries() {
		r.logger.WithFields(logrus.Fields{
			"pattern":   entry.Pattern,
			"permanent": entry.Permanent,
			"note":      entry.Note,
			"last":      entry.LastMatched,
			"count":     entry.MatchCount,
		}).Debug("loaded list entry")
	}

	return list, nil
}

func (r *Repository) loadMatches(ctx context.Context, list *domain.PatternList) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := scanFile(r.MatchPath(), func(raw string) {
		if trimEOL(raw) == "" {
			return
		}

		line, err := parseMatchLine(raw)
		if err != nil {
			r.logger.WithError(err).WithField("line", trimEOL(raw)).Warn("invalid line in match file")
			return
		}

		entry, ok := list.Get(line.pattern)
		if !ok {
			return
		}
		entry.LastMatched = line.lastMatched
		entry.MatchCount = line.count
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Debug("match file not found, starting without history")
			return nil
		}
		return fmt.Errorf("read %s match history: %w", r.kind, err)
	}

	return nil
}

// SaveMatches rewrites the history file from list.
func (r *Repository) SaveMatches(ctx context.Context, list *domain.PatternList) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	for _, entry := range list.Entries() {
		b.WriteString(formatMatchLine(entry))
		b.WriteByte('\n')
	}

	if err := writeFileAtomic(r.MatchPath(), []byte(b.String())); err != nil {
		return fmt.Errorf("write %s match history: %w", r.kind, err)
	}

	return nil
}

// Append adds entry as a new line at the end of the list file.
func (r *Repository) Append(ctx context.Context, entry *domain.PatternEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), listDirMode); err != nil {
		return fmt.Errorf("create %s list directory: %w", r.kind, err)
	}

	prefix, err := r.missingNewline()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, listFileMode)
	if err != nil {
		return fmt.Errorf("open %s list for append: %w", r.kind, err)
	}

	if _, err := file.WriteString(prefix + formatListLine(entry) + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("append %s list entry: %w", r.kind, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s list: %w", r.kind, err)
	}

	return nil
}

func (r *Repository) missingNewline() (string, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open %s list: %w", r.kind, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s list: %w", r.kind, err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s list tail: %w", r.kind, err)
	}
	if last[0] == '\n' {
		return "", nil
	}

	return "\n", nil
}

func scanFile(path string, fn func(line string)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 4096), maxLineScanned)
	for scanner.Scan() {
		fn(scanner.Text())
	}

	return scanner.Err()
}
