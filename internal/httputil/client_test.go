// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibfetch/pkg/types"
)

func testConfig() types.HTTPConfig {
	return types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "bibfetch-test/0.1"}
}

func TestGet_SetsHeaders(t *testing.T) {
	var gotAuth, gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), testConfig())
	resp, err := c.Get(context.Background(), ts.URL, "tok123", http.Header{"Accept": {"application/json"}})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "bibfetch-test/0.1", gotUA)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, "{}", string(resp.Body))
}

func TestGet_NoTokenNoAuthorization(t *testing.T) {
	var hadAuth bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), testConfig())
	_, err := c.Get(context.Background(), ts.URL, "", nil)
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestGet_ErrorStatusIsNotAnError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), testConfig())
	resp, err := c.Get(context.Background(), ts.URL, "", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.False(t, resp.OK())
	// Single attempt, no retry.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_RecordsFinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login?next=paper", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>sign in</html>"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(ts.Client(), testConfig())
	resp, err := c.Get(context.Background(), ts.URL+"/start", "", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.FinalURL, "/login?next=paper"), resp.FinalURL)
}

func TestGet_BodyTooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	c := NewClient(ts.Client(), cfg)
	_, err := c.Get(context.Background(), ts.URL, "", nil)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestGet_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(ts.Client(), testConfig())
	_, err := c.Get(ctx, ts.URL, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGet_RateLimitPacesRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	cfg := testConfig()
	cfg.RateLimit = 20 // one token every 50ms
	c := NewClient(ts.Client(), cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), ts.URL, "", nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWithQuery(t *testing.T) {
	got, err := WithQuery("https://example.org/v1/search/query?x=1", url.Values{"q": {`doi:"10.1/a b"`}, "rows": {"1"}})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("x"))
	assert.Equal(t, "1", u.Query().Get("rows"))
	assert.Equal(t, `doi:"10.1/a b"`, u.Query().Get("q"))
}
