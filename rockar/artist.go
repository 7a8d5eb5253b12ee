package rockar

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xeptore/rockar/textutil"
)

type Artist struct {
	Name   string
	albums []*Album
	page   page
}

func newArtist(client *Client, name string) *Artist {
	name = textutil.Title(name)

	return &Artist{
		Name:   name,
		albums: nil,
		page:   newPage(client, ArtistPath(name)),
	}
}

func (a *Artist) String() string {
	return "<Artist " + a.Name + ">"
}

func (a *Artist) Path() string {
	return a.page.Path()
}

// Found fetches the artist page if needed and reports whether it has content.
func (a *Artist) Found(ctx context.Context, logger zerolog.Logger) bool {
	return a.page.Found(ctx, logger.With().Str("artist", a.Name).Logger())
}

// Parse extracts the discography from the artist page. Calling it again
// rebuilds the album list from the cached page.
func (a *Artist) Parse(ctx context.Context, logger zerolog.Logger) {
	logger = logger.With().Str("artist", a.Name).Logger()

	var x artistExtractor
	walk(a.page.Body(ctx, logger), &x)

	albums := make([]*Album, 0, len(x.records))
	for _, r := range x.records {
		name := r.field(0)
		if name == "" || r.href == "" {
			logger.Debug().Str("href", r.href).Strs("fields", r.fields).Msg("Skipping incomplete discography entry")
			continue
		}
		albums = append(albums, newAlbum(a.page.client, name, r.field(1), resolveLink(a.Path(), r.href)))
	}
	a.albums = albums

	logger.Debug().Int("albums", len(a.albums)).Msg("Artist page parsed")
}

func (a *Artist) Albums() []*Album {
	return a.albums
}

// Album returns the first album whose normalized name equals the normalized
// query.
func (a *Artist) Album(name string) (*Album, bool) {
	want := textutil.Normalize(name)
	for _, album := range a.albums {
		if textutil.Normalize(album.Name) == want {
			return album, true
		}
	}

	return nil, false
}

// resolveLink makes href relative to the site root, using the path of the
// page it was found on for relative references.
func resolveLink(pagePath, href string) string {
	href = strings.TrimSpace(href)

	ref, err := url.Parse(href)
	if nil != err || ref.IsAbs() {
		return href
	}

	return (&url.URL{Path: pagePath}).ResolveReference(ref).String() //nolint:exhaustruct
}
