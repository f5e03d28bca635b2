package logging

import "sync"

// DefaultCaptureCapacity is used when a non-positive capacity is requested.
const DefaultCaptureCapacity = 500

// Capture is a bounded, thread-safe buffer of formatted log lines.
//
// Appends may come from any goroutine (the slog handler runs on the caller's
// goroutine), while the dashboard reads Snapshot once per render. Version
// increases on every mutation so readers can skip copying when nothing
// changed.
type Capture struct {
	mu      sync.Mutex
	lines   []string // ring storage, len == capacity once full
	head    int      // index of the oldest line
	size    int
	cap     int
	version uint64
}

// NewCapture creates a capture buffer holding at most capacity lines.
func NewCapture(capacity int) *Capture {
	if capacity <= 0 {
		capacity = DefaultCaptureCapacity
	}
	return &Capture{
		lines: make([]string, 0, capacity),
		cap:   capacity,
	}
}

// Append adds a line at the tail, evicting the oldest line when full.
func (c *Capture) Append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size < c.cap {
		c.lines = append(c.lines, line)
		c.size++
	} else {
		c.lines[c.head] = line
		c.head = (c.head + 1) % c.cap
	}
	c.version++
}

// Snapshot returns the buffered lines, oldest first.
func (c *Capture) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, c.size)
	for i := 0; i < c.size; i++ {
		out[i] = c.lines[(c.head+i)%len(c.lines)]
	}
	return out
}

// Tail returns at most n of the newest lines, oldest first.
func (c *Capture) Tail(n int) []string {
	lines := c.Snapshot()
	if n >= 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Clear drops every line and bumps the version.
func (c *Capture) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = c.lines[:0]
	c.head = 0
	c.size = 0
	c.version++
}

// Version returns the mutation counter.
func (c *Capture) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Len returns the number of buffered lines.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the maximum number of lines kept.
func (c *Capture) Capacity() int {
	return c.cap
}
