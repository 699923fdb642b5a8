package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	barWidth      = 40
	labelWidth    = 30
	refreshPeriod = 500 * time.Millisecond
)

// Bar is a single-line terminal progress bar with an optional label
// naming the item being processed.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
	label   string
	started time.Time
	drawn   time.Time
	done    bool
	now     func() time.Time
}

// New creates a bar writing to stdout
func New(total int) *Bar {
	return NewWriter(os.Stdout, total)
}

// NewWriter creates a bar writing to w.
func NewWriter(w io.Writer, total int) *Bar {
	b := &Bar{w: w, total: total, now: time.Now}
	b.started = b.now()
	b.drawn = b.started
	return b
}

// SetLabel shows text, usually the song being processed, after the counters.
func (b *Bar) SetLabel(text string) {
	b.mu.Lock()
	b.label = text
	b.mu.Unlock()
}

// Increment advances the bar by one. Redraws are throttled except for the
// final step.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	if t := b.now(); t.Sub(b.drawn) > refreshPeriod || b.current >= b.total {
		b.draw()
		b.drawn = t
	}
}

// Finish draws the full bar once and moves to the next line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	b.current = b.total
	b.label = ""
	b.draw()
	fmt.Fprintln(b.w)
	b.done = true
}

func (b *Bar) draw() {
	if b.done || b.total <= 0 {
		return
	}
	fmt.Fprint(b.w, "\r"+b.frame())
}

// frame renders the current state without the leading carriage return.
func (b *Bar) frame() string {
	elapsed := b.now().Sub(b.started)

	var eta time.Duration
	if b.current > 0 {
		eta = elapsed / time.Duration(b.current) * time.Duration(b.total-b.current)
	}

	filled := barWidth * b.current / b.total
	if filled > barWidth {
		filled = barWidth
	}

	return fmt.Sprintf("[%s%s] %d/%d (%.1f%%) - Elapsed: %s - ETA: %s %-*s",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		b.current, b.total,
		float64(b.current)/float64(b.total)*100,
		formatDuration(elapsed),
		formatDuration(eta),
		labelWidth, truncate(b.label, labelWidth),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
