package fragment

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"faulttree/internal/model"

	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the raw bytes of one fragment.
type Fetcher interface {
	Fetch(ctx context.Context, path model.FragmentPath) ([]byte, error)
	Name() string
}

// Warmer is implemented by fetchers that can warm assets referenced from
// page content.
type Warmer interface {
	Warm(ctx context.Context, src string) error
}

// DirFetcher reads fragments from a local directory. The fragment path is
// taken relative to Root, so data/main.json maps to <Root>/data/main.json.
type DirFetcher struct {
	Root string
}

func (f *DirFetcher) Name() string {
	return "dir:" + f.Root
}

func (f *DirFetcher) Fetch(ctx context.Context, path model.FragmentPath) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.FetchError{Path: path, Err: err}
	}

	full, err := f.locate(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		// Map filesystem failures onto the same statuses an HTTP server would report.
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = http.StatusNotFound
		case errors.Is(err, fs.ErrPermission):
			status = http.StatusForbidden
		}
		return nil, &model.FetchError{Path: path, Status: status, Err: err}
	}
	return data, nil
}

// Warm checks that a locally referenced asset exists. Absolute URLs are
// left alone.
func (f *DirFetcher) Warm(ctx context.Context, src string) error {
	if strings.Contains(src, "://") {
		return nil
	}
	full, err := f.locate(model.FragmentPath(src))
	if err != nil {
		return err
	}
	_, err = os.Stat(full)
	return err
}

// locate maps a fragment path under Root, refusing anything that climbs out of it.
func (f *DirFetcher) locate(path model.FragmentPath) (string, error) {
	rel := strings.TrimPrefix(string(path), "/")
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	full := filepath.Join(f.Root, filepath.FromSlash(rel))
	within, err := filepath.Rel(f.Root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", &model.FetchError{Path: path, Status: http.StatusForbidden, Err: errors.New("path escapes data directory")}
	}
	return full, nil
}

// NewFetcher picks the transport: a local directory when dir is set,
// otherwise HTTP against baseURL.
func NewFetcher(baseURL, dir string, timeout time.Duration, log *logrus.Entry) (Fetcher, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, errors.New(dir + " is not a directory")
		}
		return &DirFetcher{Root: dir}, nil
	}
	return NewHTTPFetcher(baseURL, timeout, log)
}
