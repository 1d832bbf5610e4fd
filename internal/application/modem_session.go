package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
)

const (
	cmdReset         = "ATZ"
	cmdCallerID      = "AT+VCID=1"
	cmdHangUp        = "ATH"
	cmdAnswer        = "ATA"
	cmdDataMode      = "AT+FCLASS=1"
	answerSettleTime = 2 * time.Second
	hangUpSettleTime = 1 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ModemSession runs the fixed AT scripts around a screening session.
type ModemSession struct {
	link   ports.ModemLink
	sleep  SleepFunc
	logger logrus.FieldLogger
}

func NewModemSession(link ports.ModemLink, sleep SleepFunc, logger logrus.FieldLogger) *ModemSession {
	if sleep == nil {
		sleep = sleepContext
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ModemSession{link: link, sleep: sleep, logger: logger}
}

// Initialize resets the modem and enables Caller-ID delivery.
func (s *ModemSession) Initialize(ctx context.Context) error {
	for _, command := range []string{cmdReset, cmdCallerID} {
		if err := s.expectOK(ctx, command); err != nil {
			return err
		}
	}

	return nil
}

// TerminateCall answers in data mode and hangs up so the caller hears a
// modem tone.
func (s *ModemSession) TerminateCall(ctx context.Context) error {
	if err := s.expectOK(ctx, cmdDataMode); err != nil {
		return err
	}
	if _, err := s.link.SendCommand(ctx, cmdAnswer, false); err != nil {
		return fmt.Errorf("answer call: %w", err)
	}
	if err := s.sleep(ctx, answerSettleTime); err != nil {
		return err
	}
	if err := s.expectOK(ctx, cmdHangUp); err != nil {
		return err
	}
	if err := s.sleep(ctx, hangUpSettleTime); err != nil {
		return err
	}

	return s.expectOK(ctx, cmdHangUp)
}

// Shutdown hangs up, resets the modem and closes the link. The link is
// closed even when the modem does not answer.
func (s *ModemSession) Shutdown(ctx context.Context) error {
	var errs []error
	for _, command := range []string{cmdHangUp, cmdReset} {
		if err := s.expectOK(ctx, command); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := s.link.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// expectOK sends command and warns when the modem does not acknowledge it.
// Only transport failures are returned.
func (s *ModemSession) expectOK(ctx context.Context, command string) error {
	ok, err := s.link.SendCommand(ctx, command, true)
	if err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	if !ok {
		s.logger.WithField("command", command).Warn("modem did not acknowledge command")
	}

	return nil
}
