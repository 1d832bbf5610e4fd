package ports

import (
	"context"
	"time"
)

// ModemLink is the duplex AT-command transport to the modem.
type ModemLink interface {
	// SendCommand writes command followed by CR. With waitForOK it reports
	// whether the modem answered "OK", skipping an echoed command line.
	SendCommand(ctx context.Context, command string, waitForOK bool) (bool, error)
	// ReadLine blocks until a non-empty line arrives, CR and LF stripped.
	ReadLine(ctx context.Context) (string, error)
	// ReadRawByte reads one byte; ok is false when the read timeout expired.
	ReadRawByte(ctx context.Context) (b byte, ok bool, err error)
	// SetReadTimeout bounds raw reads; zero or negative blocks indefinitely.
	SetReadTimeout(timeout time.Duration) error
	Close() error
}
