package rip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"

	"github.com/xeptore/rockar/fs"
	"github.com/xeptore/rockar/ratelimit"
	"github.com/xeptore/rockar/rockar"
	"github.com/xeptore/rockar/types"
)

var (
	ErrArtistNotFound = errors.New("artist not found")
	ErrAlbumNotFound  = errors.New("album not found")
)

// Downloader turns a free-text search query into a media file written at the
// configured output template.
type Downloader interface {
	Configure(outputTemplate string, simulate bool)
	Download(ctx context.Context, logger zerolog.Logger, query string) (*types.Match, error)
}

// History records finished tracks so later runs can skip them.
type History interface {
	Get(key string) (*types.Match, bool, error)
	Put(key string, m types.Match) error
}

// AlbumSelector narrows down the albums of an artist when no album was
// requested by name.
type AlbumSelector func(albums []*rockar.Album) ([]*rockar.Album, error)

type Options struct {
	Artist   string
	Album    string
	Simulate bool
	List     bool
	Pause    time.Duration
	Select   AlbumSelector
}

type Runner struct {
	client   *rockar.Client
	dl       Downloader
	dir      fs.DownloadsDir
	history  History
	out      io.Writer
	searched bool
}

// NewRunner wires the run. history may be nil.
func NewRunner(client *rockar.Client, dl Downloader, dir fs.DownloadsDir, history History, out io.Writer) *Runner {
	return &Runner{
		client:   client,
		dl:       dl,
		dir:      dir,
		history:  history,
		out:      out,
		searched: false,
	}
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Runner) Run(ctx context.Context, logger zerolog.Logger, opts Options) error {
	artist := r.client.Artist(opts.Artist)
	logger = logger.With().Str("artist", artist.Name).Logger()

	if !artist.Found(ctx, logger) {
		if err := ctx.Err(); nil != err {
			return err
		}
		r.printf("ERROR: %s no existe", artist.Name)

		return ErrArtistNotFound
	}

	r.printf("Obteniendo información de %s...", artist.Name)
	artist.Parse(ctx, logger)

	if opts.List {
		PrintAlbums(r.out, artist)
		return nil
	}

	artistFs := r.dir.Artist(artist.Name)
	if err := artistFs.Create(); nil != err {
		logger.Error().Err(err).Str("path", artistFs.DirPath).Msg("Failed to create artist directory")
		return fmt.Errorf("failed to create artist directory: %v", err)
	}

	albums, err := r.selectAlbums(ctx, logger, artist, opts)
	if nil != err {
		return err
	}

	for _, album := range albums {
		if err := r.album(ctx, logger, artist, artistFs, album, opts); nil != err {
			return err
		}
	}

	return nil
}

func (r *Runner) selectAlbums(
	ctx context.Context,
	logger zerolog.Logger,
	artist *rockar.Artist,
	opts Options,
) ([]*rockar.Album, error) {
	if opts.Album != "" {
		album, ok := artist.Album(opts.Album)
		if !ok || !album.Found(ctx, logger) {
			if err := ctx.Err(); nil != err {
				return nil, err
			}
			r.printf("ERROR: %s no tiene un disco %s", artist.Name, opts.Album)

			return nil, ErrAlbumNotFound
		}

		return []*rockar.Album{album}, nil
	}

	albums := artist.Albums()
	if nil == opts.Select {
		return albums, nil
	}

	selected, err := opts.Select(albums)
	if nil != err {
		return nil, fmt.Errorf("failed to select albums: %w", err)
	}

	return selected, nil
}

func (r *Runner) album(
	ctx context.Context,
	logger zerolog.Logger,
	artist *rockar.Artist,
	artistFs fs.Artist,
	album *rockar.Album,
	opts Options,
) error {
	logger = logger.With().Str("album", album.Name).Str("year", album.Year).Logger()

	if !album.Found(ctx, logger) {
		if err := ctx.Err(); nil != err {
			return err
		}
		r.printf("Ignorando %s", album.Name)

		return nil
	}

	albumFs := artistFs.Album(album.Year, album.Name)
	if err := albumFs.Create(); nil != err {
		logger.Error().Err(err).Str("path", albumFs.DirPath).Msg("Failed to create album directory")
		return fmt.Errorf("failed to create album directory: %v", err)
	}

	if opts.Album == "" {
		r.printf("%s:", album.Name)
	} else {
		r.printf("Obteniendo lista de temas...")
	}

	album.Parse(ctx, logger)

	var previous map[int]types.StoredTrack
	if !opts.Simulate {
		previous = previousTracks(logger, albumFs)
	}

	info := types.StoredAlbum{
		Artist: artist.Name,
		Name:   album.Name,
		Year:   album.Year,
		Source: album.Path(),
		Tracks: make([]types.StoredTrack, 0, len(album.Songs())),
	}
	for n, song := range album.Tracks() {
		if err := ctx.Err(); nil != err {
			return err
		}

		track := albumFs.Track(n, song)
		r.printf(" %s", track.BaseName)

		stored, err := r.track(ctx, logger.With().Int("track", n).Logger(), artist.Name, song, n, track, previous, opts)
		if nil != err {
			return err
		}
		info.Tracks = append(info.Tracks, stored)
	}

	if opts.Simulate {
		return nil
	}

	if err := albumFs.InfoFile.Write(info); nil != err {
		logger.Error().Err(err).Msg("Failed to write album info file")
		return nil
	}
	logger.Info().Str("caption", info.Caption()).Msg("Album done")

	return nil
}

// track downloads a single song. Download failures are logged and recorded
// as a track without a match; only cancellation is returned.
func (r *Runner) track(
	ctx context.Context,
	logger zerolog.Logger,
	artistName string,
	song string,
	number int,
	track fs.Track,
	previous map[int]types.StoredTrack,
	opts Options,
) (types.StoredTrack, error) {
	stored := types.StoredTrack{
		Number: number,
		Title:  song,
		Query:  artistName + " " + song,
		File:   "",
		Mime:   "",
		Match:  nil,
	}

	if !opts.Simulate {
		if m, path, ok := r.downloaded(logger, track); ok {
			r.printf("   Ya descargado")
			if prev, ok := previous[number]; ok && prev.Title == song {
				stored.Mime = prev.Mime
			}
			stored.Match, stored.File = m, filepath.Base(path)

			return stored, nil
		}
	}

	if err := r.pause(ctx, opts.Pause); nil != err {
		return stored, err
	}

	r.dl.Configure(track.OutputTemplate(), opts.Simulate)
	m, err := r.dl.Download(ctx, logger, stored.Query)
	if nil != err {
		if ctxErr := ctx.Err(); nil != ctxErr {
			return stored, ctxErr
		}
		logger.Error().Err(err).Str("query", stored.Query).Msg("Failed to download track")

		return stored, nil
	}
	stored.Match = m
	if nil != m {
		logger.Debug().Dict("match", m.ToDict()).Msg("Track matched")
	}

	if opts.Simulate {
		return stored, nil
	}

	path, ok, err := track.Find()
	if nil != err {
		logger.Error().Err(err).Msg("Failed to look for downloaded file")
		return stored, nil
	}
	if !ok {
		logger.Warn().Str("template", track.OutputTemplate()).Msg("Downloaded file not found")
		return stored, nil
	}
	stored.File = filepath.Base(path)

	mime, err := mimetype.DetectFile(path)
	if nil != err {
		logger.Error().Err(err).Str("path", path).Msg("Failed to detect downloaded file type")
	} else {
		stored.Mime = mime.String()
		if !strings.HasPrefix(mime.String(), "audio/") {
			logger.Warn().Str("path", path).Str("mime", mime.String()).Msg("Downloaded file is not audio")
		}
	}

	if nil != r.history && nil != m {
		if err := r.history.Put(track.Path(), *m); nil != err {
			logger.Error().Err(err).Msg("Failed to record track in history")
		}
	}

	return stored, nil
}

// previousTracks returns the tracks recorded by an earlier run, by number.
func previousTracks(logger zerolog.Logger, albumFs fs.Album) map[int]types.StoredTrack {
	info, err := albumFs.InfoFile.Read()
	if nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Msg("Failed to read album info file")
		}

		return nil
	}

	tracks := make(map[int]types.StoredTrack, len(info.Tracks))
	for _, t := range info.Tracks {
		tracks[t.Number] = t
	}

	return tracks
}

// downloaded reports whether the track is both in the history and on disk.
func (r *Runner) downloaded(logger zerolog.Logger, track fs.Track) (*types.Match, string, bool) {
	if nil == r.history {
		return nil, "", false
	}

	m, ok, err := r.history.Get(track.Path())
	if nil != err {
		logger.Error().Err(err).Msg("Failed to read track history")
		return nil, "", false
	}
	if !ok {
		return nil, "", false
	}

	path, ok, err := track.Find()
	if nil != err {
		logger.Error().Err(err).Msg("Failed to look for downloaded file")
		return nil, "", false
	}

	return m, path, ok
}

func (r *Runner) pause(ctx context.Context, base time.Duration) error {
	if !r.searched {
		r.searched = true
		return nil
	}

	d := ratelimit.SearchPause(base)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func PrintAlbums(w io.Writer, artist *rockar.Artist) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(artist.Name)
	t.AppendHeader(table.Row{"#", "Año", "Disco"})
	for i, a := range artist.Albums() {
		t.AppendRow(table.Row{i + 1, a.Year, a.Name})
	}
	t.Render()
}
