package serial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
	goserial "go.bug.st/serial"
)

const (
	maxLineLength = 200
	// pollInterval bounds each port read while the link blocks, so a
	// canceled context is noticed without closing the port.
	pollInterval = 200 * time.Millisecond
)

// port is the subset of goserial.Port the link drives.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Link is a ModemLink over a serial device.
type Link struct {
	port     port
	logger   logrus.FieldLogger
	one      [1]byte
	blocking bool
}

var _ ports.ModemLink = (*Link)(nil)

func Open(name string, baud int, logger logrus.FieldLogger) (*Link, error) {
	p, err := goserial.Open(name, &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open modem %s: %w", name, err)
	}

	link := newLink(p, logger.WithField("port", name))
	if err := link.SetReadTimeout(0); err != nil {
		_ = p.Close()
		return nil, err
	}

	return link, nil
}

func newLink(p port, logger logrus.FieldLogger) *Link {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Link{port: p, logger: logger, blocking: true}
}

func (l *Link) SendCommand(ctx context.Context, command string, waitForOK bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := l.port.ResetInputBuffer(); err != nil {
		return false, fmt.Errorf("reset modem input: %w", err)
	}

	l.logger.WithField("command", command).Debug("modem send")
	if _, err := l.port.Write([]byte(command + "\r")); err != nil {
		return false, fmt.Errorf("write modem command %q: %w", command, err)
	}

	if !waitForOK {
		return true, nil
	}

	line, err := l.ReadLine(ctx)
	if err != nil {
		return false, err
	}
	if line == command {
		line, err = l.ReadLine(ctx)
		if err != nil {
			return false, err
		}
	}

	return line == "OK", nil
}

func (l *Link) ReadLine(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := l.readPhysicalLine(ctx)
		if err != nil {
			return "", err
		}

		line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
		if line != "" {
			l.logger.WithField("line", line).Debug("modem received")
			return line, nil
		}
	}
}

// readPhysicalLine returns what arrived up to LF or maxLineLength bytes. With
// a read timeout set it also returns early when the timeout expires.
func (l *Link) readPhysicalLine(ctx context.Context) (string, error) {
	var b strings.Builder
	for b.Len() < maxLineLength {
		n, err := l.port.Read(l.one[:])
		if err != nil {
			return "", fmt.Errorf("read modem: %w", err)
		}
		if n == 0 {
			if !l.blocking {
				break
			}
			if err := ctx.Err(); err != nil {
				return "", err
			}
			continue
		}

		b.WriteByte(l.one[0])
		if l.one[0] == '\n' {
			break
		}
	}

	return b.String(), nil
}

func (l *Link) ReadRawByte(ctx context.Context) (byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	for {
		n, err := l.port.Read(l.one[:])
		if err != nil {
			return 0, false, fmt.Errorf("read modem: %w", err)
		}
		if n > 0 {
			return l.one[0], true, nil
		}
		if !l.blocking {
			return 0, false, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
	}
}

// SetReadTimeout bounds raw reads. Zero or negative makes reads block until
// data arrives or the context is done.
func (l *Link) SetReadTimeout(timeout time.Duration) error {
	l.blocking = timeout <= 0
	if l.blocking {
		timeout = pollInterval
	}

	if err := l.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("set modem read timeout: %w", err)
	}

	return nil
}

func (l *Link) Close() error {
	if err := l.port.Close(); err != nil {
		return fmt.Errorf("close modem: %w", err)
	}

	return nil
}
