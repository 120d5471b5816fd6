package fragment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faulttree/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPFetcherValidatesBase(t *testing.T) {
	_, err := NewHTTPFetcher("", time.Second, nil)
	assert.Error(t, err)
	_, err = NewHTTPFetcher("ftp://example.com/", time.Second, nil)
	assert.Error(t, err)
	_, err = NewHTTPFetcher("http://example.com/kb", time.Second, nil)
	assert.NoError(t, err)
}

func TestHTTPFetcherURL(t *testing.T) {
	f, err := NewHTTPFetcher("http://example.com/kb", time.Second, nil)
	require.NoError(t, err)
	f.Now = func() time.Time { return time.UnixMilli(1700000000123) }

	u, err := f.URL("data/main.json")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/kb/data/main.json?t=1700000000123", u)
}

func TestHTTPFetcherFetch(t *testing.T) {
	var gotT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotT = r.URL.Query().Get("t")
		switch r.URL.Path {
		case "/data/main.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"type":"page","title":"A"}]`))
		case "/data/secret.json":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	body, err := f.Fetch(context.Background(), "data/main.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"page","title":"A"}]`, string(body))
	assert.NotEmpty(t, gotT, "every request carries the cache-defeating parameter")

	t.Run("non-success status", func(t *testing.T) {
		for path, status := range map[model.FragmentPath]int{
			"data/missing.json": http.StatusNotFound,
			"data/secret.json":  http.StatusForbidden,
		} {
			_, err := f.Fetch(context.Background(), path)
			var fe *model.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, status, fe.Status)
			assert.Equal(t, path, fe.Path)
		}
	})

	t.Run("through the cache", func(t *testing.T) {
		c := NewCache(f, nil)
		nodes, err := c.Load(context.Background(), "data/main.json")
		require.NoError(t, err)
		assert.Equal(t, "A", nodes[0].Title)
	})
}

func TestHTTPFetcherNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f, err := NewHTTPFetcher(url, time.Second, nil)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "data/main.json")
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
}

func TestHTTPFetcherWarm(t *testing.T) {
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/img/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL+"/", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, f.Warm(context.Background(), "img/pump.png"))
	assert.Error(t, f.Warm(context.Background(), "img/missing.png"))
	assert.Equal(t, []string{"/img/pump.png", "/img/missing.png"}, hits)
}
