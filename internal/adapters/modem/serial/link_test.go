package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goserial "go.bug.st/serial"
)

type fakePort struct {
	input    *bytes.Reader
	written  bytes.Buffer
	resets   int
	timeout  time.Duration
	readErr  error
	closed   bool
	timeouts int
	onIdle   func()
}

func newFakePort(input string) *fakePort {
	return &fakePort{input: bytes.NewReader([]byte(input)), timeout: goserial.NoTimeout}
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}

	n, err := p.input.Read(b)
	if errors.Is(err, io.EOF) {
		if p.timeout == goserial.NoTimeout {
			return 0, io.ErrUnexpectedEOF
		}
		p.timeouts++
		if p.onIdle != nil {
			p.onIdle()
		}
		return 0, nil
	}
	return n, err
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestLink(p *fakePort) *Link {
	logger, _ := logtest.NewNullLogger()
	return newLink(p, logger)
}

func TestLinkSendCommandSkipsEcho(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "echo then ok", input: "AT+VCID=1\r\r\nOK\r\n", want: true},
		{name: "ok without echo", input: "\r\nOK\r\n", want: true},
		{name: "error", input: "AT+VCID=1\r\r\nERROR\r\n", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := newFakePort(tc.input)
			link := newTestLink(p)

			ok, err := link.SendCommand(context.Background(), "AT+VCID=1", true)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
			assert.Equal(t, "AT+VCID=1\r", p.written.String())
			assert.Equal(t, 1, p.resets)
		})
	}
}

func TestLinkSendCommandWithoutWaitDoesNotRead(t *testing.T) {
	t.Parallel()

	p := newFakePort("")
	link := newTestLink(p)

	ok, err := link.SendCommand(context.Background(), "ATA", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ATA\r", p.written.String())
}

func TestLinkReadLineSkipsBlankLines(t *testing.T) {
	t.Parallel()

	link := newTestLink(newFakePort("\r\n\r\nRING\r\n\r\nDATE=1017\r\n"))

	line, err := link.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RING", line)

	line, err = link.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DATE=1017", line)
}

func TestLinkReadLineCapsPhysicalLineLength(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxLineLength+5)
	link := newTestLink(newFakePort(long + "\r\n"))

	line, err := link.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Len(t, line, maxLineLength)

	line, err = link.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", line)
}

func TestLinkReadLineReturnsTransportError(t *testing.T) {
	t.Parallel()

	p := newFakePort("")
	p.readErr = errors.New("device unplugged")
	link := newTestLink(p)

	_, err := link.ReadLine(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "read modem")
	assert.ErrorContains(t, err, "device unplugged")
}

func TestLinkReadRawByteReportsTimeout(t *testing.T) {
	t.Parallel()

	p := newFakePort("\x10")
	link := newTestLink(p)
	require.NoError(t, link.SetReadTimeout(time.Second))
	assert.Equal(t, time.Second, p.timeout)

	b, ok, err := link.ReadRawByte(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(0x10), b)

	_, ok, err = link.ReadRawByte(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.timeouts)

	require.NoError(t, link.SetReadTimeout(0))
	assert.Equal(t, pollInterval, p.timeout)
}

func TestLinkBlockingReadsStopOnCancel(t *testing.T) {
	t.Parallel()

	p := newFakePort("RI")
	link := newTestLink(p)
	require.NoError(t, link.SetReadTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	p.onIdle = func() {
		if p.timeouts == 3 {
			cancel()
		}
	}

	_, err := link.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, p.timeouts)

	_, _, err = link.ReadRawByte(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinkTimedReadLineReturnsPartialLine(t *testing.T) {
	t.Parallel()

	p := newFakePort("RI")
	link := newTestLink(p)
	require.NoError(t, link.SetReadTimeout(time.Second))

	line, err := link.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RI", line)
}

func TestLinkHonorsCanceledContextAndClose(t *testing.T) {
	t.Parallel()

	p := newFakePort("RING\r\n")
	link := newTestLink(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := link.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, link.Close())
	assert.True(t, p.closed)
}
