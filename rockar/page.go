package rockar

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/xeptore/rockar/textutil"
)

// PathResolver yields the site-relative path of a page.
type PathResolver interface {
	ResolvePath() string
}

// ArtistPath computes an artist page path from the artist display name.
type ArtistPath string

func (p ArtistPath) ResolvePath() string {
	return "/artistas/" + textutil.Normalize(string(p)) + ".shtml"
}

// LinkPath is a path discovered on another page and used verbatim.
type LinkPath string

func (p LinkPath) ResolvePath() string {
	return string(p)
}

type fetchState int

const (
	notFetched fetchState = iota
	fetched
	failed
)

func (s fetchState) String() string {
	switch s {
	case notFetched:
		return "not_fetched"
	case fetched:
		return "fetched"
	case failed:
		return "failed"
	default:
		panic("unexpected fetch state")
	}
}

// page fetches its document at most once and remembers the outcome. A failed
// fetch is remembered as an empty body.
type page struct {
	client   *Client
	resolver PathResolver
	path     string
	resolved bool
	state    fetchState
	body     string
}

func newPage(client *Client, resolver PathResolver) page {
	return page{ //nolint:exhaustruct
		client:   client,
		resolver: resolver,
		state:    notFetched,
	}
}

// Path resolves the page path on first use and returns the same value
// afterwards.
func (p *page) Path() string {
	if !p.resolved {
		p.path = p.resolver.ResolvePath()
		p.resolved = true
	}

	return p.path
}

func (p *page) Body(ctx context.Context, logger zerolog.Logger) string {
	if p.state != notFetched {
		return p.body
	}

	logger = logger.With().Str("path", p.Path()).Logger()

	body, err := p.client.get(ctx, logger, p.Path())
	if nil != err {
		p.state, p.body = failed, ""
		logger.Debug().Err(err).Stringer("state", p.state).Msg("Page is not available")

		return p.body
	}

	p.state, p.body = fetched, body
	logger.Debug().Stringer("state", p.state).Int("length", len(body)).Msg("Page fetched")

	return p.body
}

func (p *page) Found(ctx context.Context, logger zerolog.Logger) bool {
	return len(p.Body(ctx, logger)) > 0
}
