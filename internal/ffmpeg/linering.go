package ffmpeg

import (
	"strings"
	"sync"
)

// lineRing is a thread-safe ring buffer keeping the last N stderr lines of
// an encode run. Encode diagnostics can run to megabytes on broken inputs;
// the tail is all that is ever reported.
type lineRing struct {
	mu    sync.RWMutex
	lines []string
	head  int
	size  int
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 64
	}
	return &lineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer over line-oriented input. Partial lines across
// writes are not reassembled; stderr from ffmpeg is line-buffered enough
// for diagnostic purposes.
func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(string(p), "\n") {
		if line == "" {
			continue
		}
		r.lines[r.head] = line
		r.head = (r.head + 1) % r.size
	}
	return len(p), nil
}

// Tail returns up to n captured lines in chronological order.
func (r *lineRing) Tail(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.size {
		n = r.size
	}
	ordered := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.size
		if r.lines[idx] != "" {
			ordered = append(ordered, r.lines[idx])
		}
	}
	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// String joins the full captured tail into one diagnostic block.
func (r *lineRing) String() string {
	return strings.Join(r.Tail(r.size), "\n")
}
