package logging

import (
	"strings"
	"sync"
)

// LineBuffer keeps the most recent log lines written to it.
type LineBuffer struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// NewLineBuffer returns a buffer holding up to size lines.
func NewLineBuffer(size int) *LineBuffer {
	return &LineBuffer{lines: make([]string, max(1, size))}
}

// GlobalLogCapture holds recent server log lines (INFO+).
var GlobalLogCapture = NewLineBuffer(1)

// GlobalEditCapture holds recent label edits.
var GlobalEditCapture = NewLineBuffer(50)

// Write implements io.Writer. Each call is one line.
func (b *LineBuffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	b.mu.Lock()
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()
	return len(p), nil
}

// GetLastLine returns the most recent line, or "" when nothing was written.
func (b *LineBuffer) GetLastLine() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.next == 0 && !b.full {
		return ""
	}
	return b.lines[(b.next-1+len(b.lines))%len(b.lines)]
}

// Recent returns up to n lines, newest first.
func (b *LineBuffer) Recent(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.next
	if b.full {
		count = len(b.lines)
	}
	n = min(n, count)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, b.lines[(b.next-i+len(b.lines))%len(b.lines)])
	}
	return out
}
