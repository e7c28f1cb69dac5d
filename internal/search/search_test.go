package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsUpstreamBody(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Abstract":"widgets"}`))
	}))
	t.Cleanup(srv.Close)

	p := New(Config{Endpoint: srv.URL + "/", Timeout: time.Second, UserAgent: "catalog-test/1.0"}, nil)

	got := p.Search(context.Background(), "widget")
	assert.Equal(t, `{"Abstract":"widgets"}`, got)
	assert.Equal(t, "q=widget&format=json", gotQuery)
	assert.Equal(t, "catalog-test/1.0", gotUA)
}

func TestSearchReturnsBodyForNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream busy"))
	}))
	t.Cleanup(srv.Close)

	p := New(Config{Endpoint: srv.URL + "/", Timeout: time.Second}, nil)
	assert.Equal(t, "upstream busy", p.Search(context.Background(), "x"))
}

func TestSearchPassesQueryUnescaped(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	p := New(Config{Endpoint: srv.URL + "/", Timeout: time.Second}, nil)
	p.Search(context.Background(), "a+b&lang=en")
	assert.Equal(t, "q=a+b&lang=en&format=json", gotQuery)
}

func TestSearchUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL + "/"
	srv.Close()

	p := New(Config{Endpoint: endpoint, Timeout: time.Second}, nil)
	assert.Equal(t, "Error: Failed to fetch data.", p.Search(context.Background(), "widget"))

	_, err := p.Fetch(context.Background(), "widget")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestSearchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	p := New(Config{Endpoint: srv.URL + "/", Timeout: 50 * time.Millisecond}, nil)
	assert.Equal(t, FailureMessage, p.Search(context.Background(), "slow"))
}

func TestSearchHonorsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{Endpoint: srv.URL + "/"}, nil)
	assert.Equal(t, FailureMessage, p.Search(ctx, "x"))
}

func TestURL(t *testing.T) {
	p := New(Config{Endpoint: "https://api.duckduckgo.com/"}, nil)
	assert.Equal(t, "https://api.duckduckgo.com/?q=go lang&format=json", p.URL("go lang"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "json", classify([]byte(`{"a":1}`)))
	assert.Equal(t, "non-json", classify([]byte("<html>")))
	assert.Equal(t, "empty", classify([]byte("  ")))
}
