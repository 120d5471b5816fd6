package fragment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"faulttree/internal/model"

	"github.com/sirupsen/logrus"
)

// maxFragmentSize caps a single response body.
const maxFragmentSize = 16 << 20

// HTTPFetcher retrieves fragments with GET requests relative to a base URL.
// Every request carries a t=<unix millis> query parameter so intermediate
// caches never serve a stale fragment.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
	log    *logrus.Entry

	// Now is the clock used for the cache-defeating parameter.
	Now func() time.Time
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, timeout time.Duration, log *logrus.Entry) (*HTTPFetcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	// ResolveReference only keeps the last segment of the base when it ends in a slash.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if log == nil {
		log = DiscardLogger()
	}
	return &HTTPFetcher{
		base:   u,
		client: &http.Client{Timeout: timeout},
		log:    log.WithField("component", "http-fetcher"),
		Now:    time.Now,
	}, nil
}

func (f *HTTPFetcher) Name() string {
	return f.base.String()
}

// URL returns the request URL for a fragment path, including the cache-defeating parameter.
func (f *HTTPFetcher) URL(path model.FragmentPath) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(string(path), "/"))
	if err != nil {
		return "", err
	}
	u := f.base.ResolveReference(ref)
	q := u.Query()
	q.Set("t", strconv.FormatInt(f.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path model.FragmentPath) ([]byte, error) {
	target, err := f.URL(path)
	if err != nil {
		return nil, &model.FetchError{Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &model.FetchError{Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	f.log.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("fetched fragment")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &model.FetchError{Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize+1))
	if err != nil {
		return nil, &model.FetchError{Path: path, Status: resp.StatusCode, Err: err}
	}
	if len(body) > maxFragmentSize {
		return nil, &model.FetchError{Path: path, Status: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", maxFragmentSize)}
	}
	return body, nil
}

// Warm requests an asset referenced by page content, such as an image, so
// the HTTP caches along the way hold it before it is displayed. Relative
// sources resolve against the base URL.
func (f *HTTPFetcher) Warm(ctx context.Context, src string) error {
	ref, err := url.Parse(src)
	if err != nil {
		return err
	}
	target := f.base.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("warm %s: HTTP %d", target, resp.StatusCode)
	}
	return nil
}

// DiscardLogger is the fallback for callers that pass no logger.
func DiscardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
