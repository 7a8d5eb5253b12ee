package rockar

import (
	"context"
	"iter"
	"strings"

	"github.com/rs/zerolog"
)

type Album struct {
	Name  string
	Year  string
	songs []string
	page  page
}

func newAlbum(client *Client, name, year, link string) *Album {
	return &Album{
		Name:  name,
		Year:  strings.TrimRight(strings.TrimLeft(year, "("), ")"),
		songs: nil,
		page:  newPage(client, LinkPath(link)),
	}
}

func (a *Album) String() string {
	return "<Album " + a.Name + ">"
}

func (a *Album) Path() string {
	return a.page.Path()
}

func (a *Album) Found(ctx context.Context, logger zerolog.Logger) bool {
	return a.page.Found(ctx, logger.With().Str("album", a.Name).Logger())
}

// Parse extracts the track list from the album page. Calling it again
// rebuilds the list from the cached page.
func (a *Album) Parse(ctx context.Context, logger zerolog.Logger) {
	logger = logger.With().Str("album", a.Name).Logger()

	var x albumExtractor
	walk(a.page.Body(ctx, logger), &x)
	a.songs = x.songs

	logger.Debug().Int("songs", len(a.songs)).Msg("Album page parsed")
}

// Songs returns the song titles in listing order. Duplicates are separate
// tracks.
func (a *Album) Songs() []string {
	return a.songs
}

// Tracks yields every song with its 1-based track number.
func (a *Album) Tracks() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, song := range a.songs {
			if !yield(i+1, song) {
				return
			}
		}
	}
}
