package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrcfetch/internal/match"
	"lrcfetch/internal/track"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		assert.Equal(t, "Love Story", r.URL.Query().Get("q"))
		w.Write([]byte(`{"name": "ok", "count": 3}`))
	}))
	defer srv.Close()

	h := NewHTTP("test", "test-agent", nil)
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	ok := h.GetJSON(context.Background(), srv.URL, url.Values{"q": {"Love Story"}}, http.Header{"X-Extra": {"yes"}}, &out)
	require.True(t, ok)
	assert.Equal(t, "ok", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestGetJSONFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "bad json", status: http.StatusOK, body: `{"name": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]interface{}
			assert.False(t, NewHTTP("test", "", nil).GetJSON(context.Background(), srv.URL, nil, nil, &out))
		})
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	require.True(t, NewHTTP("test", "", nil).GetJSON(context.Background(), srv.URL, nil, nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, 2, calls)
}

func TestRetryOnlyOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var out map[string]interface{}
	assert.False(t, NewHTTP("test", "", nil).GetJSON(context.Background(), srv.URL, nil, nil, &out))
	assert.Equal(t, 2, calls)
}

func TestGetUnauthorized(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := NewHTTP("test", "", nil).Get(context.Background(), srv.URL, nil, nil, &out)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, calls)

	srv404 := httptest.NewServer(http.NotFoundHandler())
	defer srv404.Close()
	err = NewHTTP("test", "", nil).Get(context.Background(), srv404.URL, nil, nil, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, time.Second, retryAfter(""))
	assert.Equal(t, time.Second, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, maxRetryAfter, retryAfter("3600"))
}

type strategyFunc func([]string, track.Track) (match.Result[string], error)

func (f strategyFunc) Resolve(c []string, local track.Track) (match.Result[string], error) {
	return f(c, local)
}

func TestChoose(t *testing.T) {
	diags := match.Diagnostics{"album": {Expected: "fearless", Found: "red"}}
	doubtful := strategyFunc(func([]string, track.Track) (match.Result[string], error) {
		return match.Result[string]{Candidate: "b", Diagnostics: diags}, nil
	})

	tests := []struct {
		name     string
		strategy match.Strategy[string]
		confirm  Confirmer
		want     string
		wantErr  error
	}{
		{
			name: "accepted",
			strategy: strategyFunc(func([]string, track.Track) (match.Result[string], error) {
				return match.Result[string]{Accepted: true, Candidate: "a"}, nil
			}),
			want: "a",
		},
		{
			name: "strategy error passes through",
			strategy: strategyFunc(func([]string, track.Track) (match.Result[string], error) {
				return match.Result[string]{}, match.ErrInstrumental
			}),
			wantErr: match.ErrInstrumental,
		},
		{name: "doubtful without confirmer", strategy: doubtful, wantErr: match.ErrNoMatch},
		{
			name:     "doubtful confirmed",
			strategy: doubtful,
			confirm:  ConfirmFunc(func(string, match.Diagnostics) bool { return true }),
			want:     "b",
		},
		{
			name:     "doubtful declined",
			strategy: doubtful,
			confirm:  ConfirmFunc(func(string, match.Diagnostics) bool { return false }),
			wantErr:  match.ErrNoMatch,
		},
		{
			name: "rejected without diagnostics skips confirmer",
			strategy: strategyFunc(func([]string, track.Track) (match.Result[string], error) {
				return match.Result[string]{Candidate: "c"}, nil
			}),
			confirm: ConfirmFunc(func(string, match.Diagnostics) bool {
				t.Error("confirmer should not be asked")
				return true
			}),
			wantErr: match.ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Choose("test", tt.strategy, []string{"a", "b"}, track.Track{}, tt.confirm)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
