package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"
)

const (
	maxMessageSize = 10 * 1024 * 1024
	drainTimeout   = 30 * time.Second
)

// stdioSession sits between the caller's streams and a runtime. It counts the
// requests it reads and the responses the runtime writes, and only passes end
// of input on once every request read so far has been answered. Both runtimes
// stop on EOF without waiting for handlers that are still running.
type stdioSession struct {
	pr  *io.PipeReader
	pw  *io.PipeWriter
	out io.Writer

	writeMu sync.Mutex

	mu      sync.Mutex
	pending int
	partial []byte
	changed chan struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

func newStdioSession(out io.Writer) *stdioSession {
	pr, pw := io.Pipe()
	return &stdioSession{
		pr:      pr,
		pw:      pw,
		out:     out,
		changed: make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Reader is what the runtime reads requests from.
func (s *stdioSession) Reader() io.ReadCloser {
	return s.pr
}

// pump copies in to the runtime one message per line. It returns when in is
// exhausted or the runtime stops reading.
func (s *stdioSession) pump(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		s.add(countMessages(line, isRequest))

		msg := make([]byte, 0, len(line)+1)
		msg = append(append(msg, line...), '\n')
		if _, err := s.pw.Write(msg); err != nil {
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		s.waitIdle(ctx)
	}
	// a nil error reaches the runtime as io.EOF
	_ = s.pw.CloseWithError(err)
}

func (s *stdioSession) add(n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.pending += n
	if s.pending < 0 {
		s.pending = 0
	}
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *stdioSession) inFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *stdioSession) waitIdle(ctx context.Context) {
	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	for s.inFlight() > 0 {
		select {
		case <-s.changed:
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case <-timer.C:
			log.Printf("end of input with %d request(s) still unanswered after %s", s.inFlight(), drainTimeout)
			return
		}
	}
}

// Write forwards runtime output and counts the responses in it. Messages are
// newline delimited but may arrive split over several writes.
func (s *stdioSession) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.out.Write(p)

	s.mu.Lock()
	s.partial = append(s.partial, p[:n]...)
	answered := 0
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		answered += countMessages(s.partial[:i], isResponse)
		s.partial = append(s.partial[:0], s.partial[i+1:]...)
	}
	if len(s.partial) > 0 && json.Valid(s.partial) {
		answered += countMessages(s.partial, isResponse)
		s.partial = s.partial[:0]
	}
	s.mu.Unlock()

	s.add(-answered)
	return n, err
}

// Close leaves the caller's writer open; the caller owns it.
func (s *stdioSession) Close() error {
	return nil
}

// stop unblocks a pump still writing to, or waiting on, a runtime that has
// returned.
func (s *stdioSession) stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		_ = s.pr.Close()
	})
}

type envelope struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

func (e envelope) hasID() bool {
	return len(e.ID) > 0 && !bytes.Equal(e.ID, []byte("null"))
}

func isRequest(e envelope) bool {
	return e.Method != "" && e.hasID()
}

func isResponse(e envelope) bool {
	return e.Method == "" && e.hasID()
}

// countMessages counts the messages in a single message or a batch that
// match. Anything that does not parse counts as nothing.
func countMessages(data []byte, match func(envelope) bool) int {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}

	var msgs []envelope
	if data[0] == '[' {
		if err := json.Unmarshal(data, &msgs); err != nil {
			return 0
		}
	} else {
		var e envelope
		if err := json.Unmarshal(data, &e); err != nil {
			return 0
		}
		msgs = []envelope{e}
	}

	n := 0
	for _, m := range msgs {
		if match(m) {
			n++
		}
	}
	return n
}
