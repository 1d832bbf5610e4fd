package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
)

const (
	logDirMode  = 0o755
	logFileMode = 0o644
)

// Store is the append-only call log.
type Store struct {
	path   string
	logger logrus.FieldLogger
}

var _ ports.CallLog = (*Store)(nil)

func NewStore(path string, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Store{
		path:   filepath.Clean(path),
		logger: logger.WithField("path", filepath.Clean(path)),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Append(ctx context.Context, entry domain.CallLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), logDirMode); err != nil {
		return fmt.Errorf("create call log directory: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		return fmt.Errorf("open call log: %w", err)
	}

	if _, err := file.WriteString(entry.Line() + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("append call log: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close call log: %w", err)
	}

	return nil
}

// List reads every parseable entry in file order. A missing log is empty.
func (s *Store) List(ctx context.Context) ([]domain.CallLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open call log: %w", err)
	}
	defer file.Close()

	var entries []domain.CallLogEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := domain.ParseCallLogLine(line)
		if err != nil {
			s.logger.WithError(err).Warn("skipping unreadable call log line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read call log: %w", err)
	}

	return entries, nil
}
