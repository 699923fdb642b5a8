package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestBarFinish(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, 3)
	b.SetLabel("Love Story")
	b.Increment()
	b.Finish()
	b.Finish()

	out := buf.String()
	if !strings.Contains(out, "3/3 (100.0%)") {
		t.Errorf("missing completed counter in %q", out)
	}
	if n := strings.Count(out, "\n"); n != 1 {
		t.Errorf("printed %d newlines, want 1", n)
	}
}

func TestBarRendersOnCompletion(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, 2)
	b.SetLabel("White Horse")
	b.Increment()
	b.Increment()

	out := buf.String()
	if !strings.Contains(out, "2/2") || !strings.Contains(out, "White Horse") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestBarZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, 0)
	b.Increment()
	b.Finish()
	if buf.String() != "\n" {
		t.Errorf("output = %q, want a single newline", buf.String())
	}
}

func TestFrameETA(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewWriter(&bytes.Buffer{}, 4)
	b.started = start
	b.now = func() time.Time { return start.Add(20 * time.Second) }
	b.current = 1

	f := b.frame()
	if bar := "[" + strings.Repeat("█", 10) + strings.Repeat("░", 30) + "]"; !strings.HasPrefix(f, bar) {
		t.Errorf("frame = %q, want prefix %q", f, bar)
	}
	if !strings.Contains(f, "1/4 (25.0%) - Elapsed: 20s - ETA: 1m0s") {
		t.Errorf("frame = %q", f)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("truncate(abcdefgh) = %q, want abcd…", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
