package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPurgeInterval = 24 * time.Hour
	DefaultLifetime      = 270 * 24 * time.Hour
)

type ScreeningOptions struct {
	Clock  ports.Clock
	Logger logrus.FieldLogger
	// Sleep replaces the pauses of the call termination script.
	Sleep SleepFunc
	// Reload carries reload requests; a pending request is honored once per
	// loop pass.
	Reload        <-chan struct{}
	PurgeInterval time.Duration
	Lifetime      time.Duration
}

// ScreeningService screens incoming calls against the allow and block lists.
type ScreeningService struct {
	link      ports.ModemLink
	session   *ModemSession
	detector  *StarKeyDetector
	allowRepo ports.PatternRepository
	blockRepo ports.PatternRepository
	calls     ports.CallLog
	clock     ports.Clock
	logger    logrus.FieldLogger
	reload    <-chan struct{}

	purgeInterval time.Duration
	lifetime      time.Duration
	lastPurge     time.Time

	allow       *domain.PatternList
	block       *domain.PatternList
	accumulator domain.CallAccumulator
}

func NewScreeningService(link ports.ModemLink, allowRepo, blockRepo ports.PatternRepository, calls ports.CallLog, opts ScreeningOptions) *ScreeningService {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.PurgeInterval <= 0 {
		opts.PurgeInterval = DefaultPurgeInterval
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}

	return &ScreeningService{
		link:          link,
		session:       NewModemSession(link, opts.Sleep, opts.Logger),
		detector:      NewStarKeyDetector(link, opts.Clock, opts.Logger),
		allowRepo:     allowRepo,
		blockRepo:     blockRepo,
		calls:         calls,
		clock:         opts.Clock,
		logger:        opts.Logger,
		reload:        opts.Reload,
		purgeInterval: opts.PurgeInterval,
		lifetime:      opts.Lifetime,
		allow:         domain.NewPatternList(domain.ListAllow),
		block:         domain.NewPatternList(domain.ListBlock),
	}
}

// Start initializes the modem and loads both lists.
func (s *ScreeningService) Start(ctx context.Context) error {
	if err := s.session.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize modem: %w", err)
	}

	return s.LoadLists(ctx)
}

// LoadLists replaces both lists with fresh copies from disk and persists the
// resulting match history.
func (s *ScreeningService) LoadLists(ctx context.Context) error {
	allow, err := loadAndPersist(ctx, s.allowRepo)
	if err != nil {
		return err
	}
	block, err := loadAndPersist(ctx, s.blockRepo)
	if err != nil {
		return err
	}

	s.allow, s.block = allow, block
	s.logger.WithFields(logrus.Fields{
		"allow": allow.Len(),
		"block": block.Len(),
	}).Info("lists loaded")

	return nil
}

func loadAndPersist(ctx context.Context, repo ports.PatternRepository) (*domain.PatternList, error) {
	list, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s list: %w", repo.Kind(), err)
	}
	if err := repo.SaveMatches(ctx, list); err != nil {
		return nil, fmt.Errorf("save %s match history: %w", repo.Kind(), err)
	}

	return list, nil
}

func (s *ScreeningService) Allow() *domain.PatternList {
	return s.allow
}

func (s *ScreeningService) Block() *domain.PatternList {
	return s.block
}

// Run screens calls until ctx is canceled or the modem link fails.
func (s *ScreeningService) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.purgeIfDue(ctx); err != nil {
			return err
		}

		line, err := s.link.ReadLine(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read modem line: %w", err)
		}

		if err := s.reloadIfRequested(ctx); err != nil {
			return err
		}

		if _, _, err := s.HandleLine(ctx, line); err != nil {
			return err
		}
	}
}

// Shutdown hangs up, resets the modem and closes the link.
func (s *ScreeningService) Shutdown(ctx context.Context) error {
	return s.session.Shutdown(ctx)
}

// HandleLine feeds one modem line to the accumulator and screens the call
// when it completes a record.
func (s *ScreeningService) HandleLine(ctx context.Context, line string) (domain.CallLogEntry, bool, error) {
	step := s.accumulator.Feed(line, s.clock.Now())
	if step.NewCall {
		s.logger.Info("incoming call")
	}
	if !step.Complete {
		return domain.CallLogEntry{}, false, nil
	}

	entry, err := s.Screen(ctx, step.Record)
	return entry, true, err
}

// Screen decides the outcome for one call, acts on it and appends it to the
// call log.
func (s *ScreeningService) Screen(ctx context.Context, record domain.CallRecord) (domain.CallLogEntry, error) {
	now := s.clock.Now()
	ts := record.Timestamp(now.Year())
	entry := domain.CallLogEntry{
		Timestamp: ts,
		Number:    record.Number,
		Name:      record.Name,
		Outcome:   domain.OutcomeNoMatch,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"number": record.Number,
		"name":   record.Name,
	})

	if matched, ok := s.allow.MatchBoth(record.Number, record.Name, ts); ok {
		entry.Outcome = domain.OutcomeAllow
		logger = logger.WithField("pattern", matched.Pattern)
		if err := s.allowRepo.SaveMatches(ctx, s.allow); err != nil {
			return entry, fmt.Errorf("save allow match history: %w", err)
		}
	} else if matched, ok := s.block.MatchBoth(record.Number, record.Name, ts); ok {
		entry.Outcome = domain.OutcomeBlock
		logger = logger.WithField("pattern", matched.Pattern)
		if err := s.blockRepo.SaveMatches(ctx, s.block); err != nil {
			return entry, fmt.Errorf("save block match history: %w", err)
		}
		if err := s.session.TerminateCall(ctx); err != nil {
			return entry, fmt.Errorf("terminate call: %w", err)
		}
	} else {
		pressed, err := s.detector.Detect(ctx)
		if err != nil {
			return entry, fmt.Errorf("detect star key: %w", err)
		}
		if pressed {
			added, err := s.addCallerToBlock(ctx, record.Number, now)
			if err != nil {
				return entry, err
			}
			if added {
				entry.Outcome = domain.OutcomeAddedByUser
			}
		}
	}

	if err := s.calls.Append(ctx, entry); err != nil {
		return entry, fmt.Errorf("append call log: %w", err)
	}
	logger.WithField("outcome", entry.Outcome).Info("call screened")

	return entry, nil
}

// addCallerToBlock appends number to the block list. A number that is not a
// usable pattern is logged and leaves the list untouched.
func (s *ScreeningService) addCallerToBlock(ctx context.Context, number string, now time.Time) (bool, error) {
	_, err := appendPattern(ctx, s.blockRepo, s.block, number, false, domain.UserAddedNote, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrEmptyPattern),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, domain.ErrPatternExists):
		s.logger.WithError(err).WithField("number", number).Warn("cannot add caller to block list")
		return false, nil
	default:
		return false, err
	}
}

func (s *ScreeningService) reloadIfRequested(ctx context.Context) error {
	select {
	case <-s.reload:
	default:
		return nil
	}

	s.logger.Info("reloading lists")
	return s.LoadLists(ctx)
}

// purgeIfDue purges the block list on the first pass and then once per
// purge interval.
func (s *ScreeningService) purgeIfDue(ctx context.Context) error {
	now := s.clock.Now()
	if !s.lastPurge.IsZero() && now.Sub(s.lastPurge) < s.purgeInterval {
		return nil
	}
	s.lastPurge = now

	purged, err := s.blockRepo.Purge(ctx, s.block, s.lifetime, now)
	if err != nil {
		return fmt.Errorf("purge block list: %w", err)
	}
	if len(purged) == 0 {
		return nil
	}

	s.logger.WithField("count", len(purged)).Info("block list purged")

	if err := s.blockRepo.SaveMatches(ctx, s.block); err != nil {
		return fmt.Errorf("save block match history: %w", err)
	}

	return nil
}
