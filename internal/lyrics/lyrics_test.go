package lyrics

import (
	"context"
	"testing"

	"lrcfetch/internal/track"
)

type stubProvider string

func (s stubProvider) Name() string { return string(s) }
func (s stubProvider) Lyrics(context.Context, track.Track, Format) (string, error) {
	return "", nil
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		ms   int
		want string
	}{
		{0, "00:00.00"},
		{1234, "00:01.23"},
		{61000, "01:01.00"},
		{600999, "10:00.99"},
		{-5, "00:00.00"},
	}
	for _, tt := range tests {
		if got := Timestamp(tt.ms); got != tt.want {
			t.Errorf("Timestamp(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestWithHeader(t *testing.T) {
	got := WithHeader("Love Story", "[00:12.00] We were both young", Synced)
	want := "[00:00.00] Love Story\n[00:12.00] We were both young"
	if got != want {
		t.Errorf("synced = %q, want %q", got, want)
	}

	if got := WithHeader("Love Story", "We were both young", Plain); got != "We were both young" {
		t.Errorf("plain = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("synced"); err != nil || f != Synced {
		t.Errorf("synced: %v %v", f, err)
	}
	if f, err := ParseFormat("plain"); err != nil || f != Plain {
		t.Errorf("plain: %v %v", f, err)
	}
	if _, err := ParseFormat("karaoke"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestIsSynced(t *testing.T) {
	if !IsSynced("[00:12.34] hello\nworld") {
		t.Error("expected synced")
	}
	if IsSynced("hello\nworld") {
		t.Error("expected plain")
	}
}

func TestRegistryOrder(t *testing.T) {
	reg := NewRegistry(stubProvider("lrclib"), stubProvider("spotify"), stubProvider("musixmatch"))

	tests := []struct {
		name        string
		order       string
		want        []string
		wantUnknown []string
		wantErr     bool
	}{
		{name: "full names", order: "spotify,lrclib", want: []string{"spotify", "lrclib"}},
		{name: "prefixes", order: "spot, lrc ,m", want: []string{"spotify", "lrclib", "musixmatch"}},
		{name: "case insensitive", order: "LRC", want: []string{"lrclib"}},
		{name: "unknown dropped", order: "genius,lrclib", want: []string{"lrclib"}, wantUnknown: []string{"genius"}},
		{name: "duplicate", order: "lrclib,lrc", wantErr: true},
		{name: "empty entries", order: ",lrclib,,", want: []string{"lrclib"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown, err := reg.Order(tt.order)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d providers, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.Name() != tt.want[i] {
					t.Errorf("provider[%d] = %s, want %s", i, p.Name(), tt.want[i])
				}
			}
			if len(unknown) != len(tt.wantUnknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.wantUnknown)
			}
		})
	}
}

func TestRegistryAmbiguous(t *testing.T) {
	reg := NewRegistry(stubProvider("spotify"), stubProvider("spotify-lyrics"))
	if _, _, err := reg.Order("spot"); err == nil {
		t.Error("expected ambiguity error")
	}
	got, _, err := reg.Order("spotify")
	if err != nil {
		t.Fatalf("exact name should win: %v", err)
	}
	if len(got) != 1 || got[0].Name() != "spotify" {
		t.Errorf("got %v", got)
	}
}
