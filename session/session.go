// Package session provides line-oriented synchronization with a live DUT
// console: send input, wait for expected output with a bounded timeout.
package session

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
)

// ExpectResult is the outcome of one Expect call: either one of the patterns
// matched, or the wait timed out. A timeout is a distinguishable outcome, not
// an error.
type ExpectResult struct {
	Index    int
	TimedOut bool
}

// Matched reports whether any pattern was found before the timeout.
func (r ExpectResult) Matched() bool {
	return !r.TimedOut
}

// Session is a bidirectional channel to a live process or terminal.
type Session interface {
	// Send writes one line of input. No response is implied.
	Send(text string) error
	// Expect waits until one of the literal patterns appears in the output
	// stream or the timeout elapses. Consumed output up to and including the
	// match is discarded. An error means the session itself broke.
	Expect(patterns []string, timeout time.Duration) (ExpectResult, error)
}

// Console implements Session over a raw console stream (serial port,
// emulator stdio). A background goroutine drains the stream into a buffer;
// ANSI escape sequences are scrubbed before pattern matching.
type Console struct {
	rw io.ReadWriteCloser

	mu      sync.Mutex
	buf     strings.Builder
	readErr error

	data chan struct{}
	done chan struct{}
}

// NewConsole wraps a console stream and starts draining it.
func NewConsole(rw io.ReadWriteCloser) *Console {
	c := &Console{
		rw:   rw,
		data: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go c.drain()
	return c
}

func (c *Console) drain() {
	defer close(c.done)

	chunk := make([]byte, 4096)
	for {
		n, err := c.rw.Read(chunk)
		if n > 0 {
			c.mu.Lock()
			c.buf.WriteString(stripansi.Strip(string(chunk[:n])))
			c.mu.Unlock()
			c.notify()
		}
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			c.notify()
			return
		}
	}
}

func (c *Console) notify() {
	select {
	case c.data <- struct{}{}:
	default:
	}
}

// Send writes one line to the console.
func (c *Console) Send(text string) error {
	if _, err := io.WriteString(c.rw, text+"\n"); err != nil {
		return fmt.Errorf("sending %q to console: %w", text, err)
	}
	return nil
}

// Expect waits for one of the literal patterns with a bounded timeout.
// The wait never blocks indefinitely: it ends on a match, on the timeout, or
// on a broken console stream.
func (c *Console) Expect(patterns []string, timeout time.Duration) (ExpectResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if result, ok := c.scan(patterns); ok {
			return result, nil
		}
		if err := c.streamErr(); err != nil {
			return ExpectResult{}, err
		}

		select {
		case <-c.data:
		case <-timer.C:
			return ExpectResult{TimedOut: true}, nil
		}
	}
}

// scan checks the buffered output for the patterns and consumes through the
// end of the first match.
func (c *Console) scan(patterns []string) (ExpectResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.buf.String()
	for i, pattern := range patterns {
		idx := strings.Index(text, pattern)
		if idx < 0 {
			continue
		}
		c.buf.Reset()
		c.buf.WriteString(text[idx+len(pattern):])
		return ExpectResult{Index: i}, true
	}
	return ExpectResult{}, false
}

// streamErr reports a broken console stream. EOF is not an error here: a
// closed console simply stops producing output and the wait runs into its
// timeout, which the caller already handles as an outcome.
func (c *Console) streamErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil && c.readErr != io.EOF {
		return fmt.Errorf("console stream broken: %w", c.readErr)
	}
	return nil
}

// Close releases the underlying console stream.
func (c *Console) Close() error {
	err := c.rw.Close()
	<-c.done
	return err
}
