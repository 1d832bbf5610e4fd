package application

import (
	"context"
	"io"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// rawRead is one scripted raw read; a zero value is a read timeout.
type rawRead struct {
	b  byte
	ok bool
}

func rawBytes(s string) []rawRead {
	reads := make([]rawRead, 0, len(s))
	for i := 0; i < len(s); i++ {
		reads = append(reads, rawRead{b: s[i], ok: true})
	}
	return reads
}

func rawTimeouts(n int) []rawRead {
	return make([]rawRead, n)
}

// fakeModem replays scripted lines and raw bytes. Every raw read timeout
// advances the clock by the configured read timeout.
type fakeModem struct {
	clock     *fakeClock
	lines     []string
	raw       []rawRead
	nacks     map[string]bool
	sendErr   map[string]error
	commands  []string
	timeouts  []time.Duration
	timeout   time.Duration
	closed    bool
	rawCalls  int
	onCommand func(command string)
}

func newFakeModem(clock *fakeClock, lines ...string) *fakeModem {
	return &fakeModem{clock: clock, lines: lines}
}

func (m *fakeModem) SendCommand(ctx context.Context, command string, waitForOK bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.commands = append(m.commands, command)
	if m.onCommand != nil {
		m.onCommand(command)
	}
	if err := m.sendErr[command]; err != nil {
		return false, err
	}

	return !m.nacks[command], nil
}

func (m *fakeModem) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.lines) == 0 {
		return "", io.EOF
	}

	line := m.lines[0]
	m.lines = m.lines[1:]
	return line, nil
}

func (m *fakeModem) ReadRawByte(ctx context.Context) (byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.rawCalls++

	var next rawRead
	if len(m.raw) > 0 {
		next = m.raw[0]
		m.raw = m.raw[1:]
	}
	if !next.ok {
		m.clock.Advance(m.timeout)
		return 0, false, nil
	}

	return next.b, true, nil
}

func (m *fakeModem) SetReadTimeout(timeout time.Duration) error {
	m.timeouts = append(m.timeouts, timeout)
	m.timeout = timeout
	return nil
}

func (m *fakeModem) Close() error {
	m.closed = true
	return nil
}
