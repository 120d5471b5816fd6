package navigator

import (
	"context"
	"regexp"
	"sync"

	"faulttree/internal/fragment"
	"faulttree/internal/model"

	"github.com/sirupsen/logrus"
)

var imageRefRe = regexp.MustCompile(`<im(?:age|g)\b[^>]+src=['"]([^'"]+)['"]`)

// Requester issues the network request that warms an image.
type Requester func(ctx context.Context, src string) error

// Preloader requests each image referenced by page content at most once per session.
type Preloader struct {
	request Requester
	log     *logrus.Entry

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewPreloader(request Requester, log *logrus.Entry) *Preloader {
	if log == nil {
		log = fragment.DiscardLogger()
	}
	return &Preloader{
		request: request,
		log:     log.WithField("component", "preloader"),
		seen:    make(map[string]struct{}),
	}
}

// ImageRefs lists the distinct image sources referenced by a payload, in order of appearance.
func ImageRefs(p model.Payload) []string {
	var refs []string
	dup := make(map[string]bool)
	for _, text := range p.Texts() {
		for _, m := range imageRefRe.FindAllStringSubmatch(text, -1) {
			if !dup[m[1]] {
				dup[m[1]] = true
				refs = append(refs, m[1])
			}
		}
	}
	return refs
}

// Scan claims the image sources of p that have not been seen this session
// and returns them. A claimed source is never returned again.
func (p *Preloader) Scan(payload model.Payload) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fresh []string
	for _, src := range ImageRefs(payload) {
		if _, ok := p.seen[src]; ok {
			continue
		}
		p.seen[src] = struct{}{}
		fresh = append(fresh, src)
	}
	return fresh
}

// Preload requests each source. Failures are logged and otherwise ignored.
func (p *Preloader) Preload(ctx context.Context, srcs []string) int {
	if p.request == nil {
		return 0
	}
	ok := 0
	for _, src := range srcs {
		if err := p.request(ctx, src); err != nil {
			p.log.WithError(err).WithField("src", src).Warn("image preload failed")
			continue
		}
		ok++
	}
	return ok
}

// Seen returns how many distinct sources have been claimed.
func (p *Preloader) Seen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
