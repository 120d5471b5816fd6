package fragment

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"faulttree/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func TestDirFetcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "data/main.json", `[]`)
	f := &DirFetcher{Root: root}

	body, err := f.Fetch(context.Background(), "data/main.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))

	body, err = f.Fetch(context.Background(), "data/main.json?t=1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))

	_, err = f.Fetch(context.Background(), "data/none.json")
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	_, err = f.Fetch(context.Background(), "../outside.json")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.Status)
}

func TestDirFetcherCancelled(t *testing.T) {
	f := &DirFetcher{Root: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "data/main.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirFetcherWarm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "img/pump.png", "png")
	f := &DirFetcher{Root: root}

	assert.NoError(t, f.Warm(context.Background(), "img/pump.png"))
	assert.Error(t, f.Warm(context.Background(), "img/none.png"))
	assert.NoError(t, f.Warm(context.Background(), "https://cdn.example/x.png"))
}

func TestNewFetcher(t *testing.T) {
	dir := t.TempDir()

	f, err := NewFetcher("", dir, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &DirFetcher{}, f)

	f, err = NewFetcher("http://localhost:9/", "", time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	_, err = NewFetcher("", filepath.Join(dir, "missing"), time.Second, nil)
	assert.Error(t, err)
}
