package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
)

const (
	cmdVoiceMode    = "AT+FCLASS=8"
	cmdVoiceInit    = "AT+VIP"
	cmdVoiceLine    = "AT+VLS=4"
	starKeyWindow   = 10 * time.Second
	starPollTimeout = 1 * time.Second
)

var (
	starKeyMarker = []byte("\x10/\x10*\x10~")
	ringMarkers   = [][]byte{[]byte("\x10R"), []byte("\x10r")}
)

// StarKeyDetector switches the modem to voice mode and watches for the "*"
// DTMF tone while the phone keeps ringing.
type StarKeyDetector struct {
	link   ports.ModemLink
	clock  ports.Clock
	logger logrus.FieldLogger
}

func NewStarKeyDetector(link ports.ModemLink, clock ports.Clock, logger logrus.FieldLogger) *StarKeyDetector {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &StarKeyDetector{link: link, clock: clock, logger: logger}
}

// Detect reports whether "*" was pressed before starKeyWindow passed
// without a ring. The modem is left hung up with blocking reads restored.
func (d *StarKeyDetector) Detect(ctx context.Context) (found bool, err error) {
	defer func() {
		if cleanupErr := d.restore(ctx); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	for _, command := range []string{cmdVoiceMode, cmdVoiceInit, cmdVoiceLine} {
		if _, err := d.link.SendCommand(ctx, command, true); err != nil {
			return false, fmt.Errorf("enter voice mode: %w", err)
		}
	}
	if err := d.link.SetReadTimeout(starPollTimeout); err != nil {
		return false, err
	}

	var buf []byte
	lastRing := d.clock.Now()
	for d.clock.Now().Sub(lastRing) < starKeyWindow {
		b, ok, err := d.link.ReadRawByte(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		buf = append(buf, b)

		if bytes.IndexByte(buf, '\n') >= 0 {
			for _, command := range []string{cmdVoiceInit, cmdVoiceLine} {
				if _, err := d.link.SendCommand(ctx, command, true); err != nil {
					return false, fmt.Errorf("re-enter voice mode: %w", err)
				}
			}
			buf = buf[:0]
			continue
		}

		if stripped, rang := stripRingMarkers(buf); rang {
			buf = stripped
			lastRing = d.clock.Now()
			d.logger.Debug("ring while waiting for star key")
		}

		if bytes.Contains(buf, starKeyMarker) {
			d.logger.Info("star key pressed")
			return true, nil
		}
	}

	return false, nil
}

func (d *StarKeyDetector) restore(ctx context.Context) error {
	var errs []error
	if err := d.link.SetReadTimeout(0); err != nil {
		errs = append(errs, err)
	}
	if _, err := d.link.SendCommand(ctx, cmdHangUp, true); err != nil {
		errs = append(errs, fmt.Errorf("hang up after voice mode: %w", err))
	}

	return errors.Join(errs...)
}

func stripRingMarkers(buf []byte) ([]byte, bool) {
	rang := false
	for _, marker := range ringMarkers {
		if bytes.Contains(buf, marker) {
			buf = bytes.ReplaceAll(buf, marker, nil)
			rang = true
		}
	}

	return buf, rang
}
