package rip_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/rockar/config"
	"github.com/xeptore/rockar/fs"
	"github.com/xeptore/rockar/history"
	"github.com/xeptore/rockar/rip"
	"github.com/xeptore/rockar/rockar"
	"github.com/xeptore/rockar/types"
)

const artistPage = "<html><body>\n" +
	"<h3>Discograf\xeda</h3>\n" +
	"<a href=\"soda/signos.shtml\">Signos</a> (1986)<br>\n" +
	"<a href=\"soda/doble-vida.shtml\">Doble Vida</a> (1988)<br>\n" +
	"<a href=\"soda/perdido.shtml\">Perdido</a> (1990)<br>\n" +
	"<b>Fin</b>\n" +
	"</body></html>"

const signosPage = "<html><body>\n" +
	"<p>La lista de temas es:</p>\n" +
	"<ol><li>s1</li><li>s2</li><li>s3</li></ol>\n" +
	"</body></html>"

const dobleVidaPage = "<html><body>\n" +
	"<p>La lista de temas es:</p>\n" +
	"<ol><li>d1</li></ol>\n" +
	"</body></html>"

func newClient(t *testing.T, pages map[string]string) *rockar.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	conf := config.Default().Site
	conf.BaseURL = srv.URL
	conf.Timeout.Duration = 2 * time.Second
	conf.Retries = 0
	conf.MinInterval.Duration = 0

	c, err := rockar.NewClient(conf)
	require.NoError(t, err)

	return c
}

func sodaPages() map[string]string {
	return map[string]string{
		"/artistas/soda-stereo.shtml":     artistPage,
		"/artistas/soda/signos.shtml":     signosPage,
		"/artistas/soda/doble-vida.shtml": dobleVidaPage,
	}
}

type download struct {
	template string
	simulate bool
	query    string
}

// fakeDownloader writes an mp3 looking file at the configured template
// unless simulating.
type fakeDownloader struct {
	mu        sync.Mutex
	template  string
	simulate  bool
	downloads []download
	fail      map[string]bool
}

func (d *fakeDownloader) Configure(outputTemplate string, simulate bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.template, d.simulate = outputTemplate, simulate
}

func (d *fakeDownloader) Download(_ context.Context, _ zerolog.Logger, query string) (*types.Match, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.downloads = append(d.downloads, download{template: d.template, simulate: d.simulate, query: query})
	if d.fail[query] {
		return nil, errors.New("no match")
	}

	if !d.simulate {
		path := strings.Replace(d.template, "%(ext)s", "mp3", 1)
		if err := os.WriteFile(path, append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...), 0o600); nil != err {
			return nil, err
		}
	}

	return &types.Match{ID: "id-" + query, Title: query, URL: "https://example.com/" + query, Channel: "ch", Duration: 180}, nil
}

func (d *fakeDownloader) Downloads() []download {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]download(nil), d.downloads...)
}

func TestRunArtistNotFound(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dl := &fakeDownloader{}
	r := rip.NewRunner(newClient(t, nil), dl, fs.DownloadsDirFrom(t.TempDir()), nil, &out)

	err := r.Run(context.Background(), zerolog.Nop(), rip.Options{Artist: "soda stereo"})
	require.ErrorIs(t, err, rip.ErrArtistNotFound)
	assert.Contains(t, out.String(), "ERROR: Soda Stereo no existe")
	assert.Empty(t, dl.Downloads())
}

func TestRunAlbumNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		album string
	}{
		{name: "unknown album", album: "Nope"},
		{name: "album page missing", album: "Perdido"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			dl := &fakeDownloader{}
			r := rip.NewRunner(newClient(t, sodaPages()), dl, fs.DownloadsDirFrom(t.TempDir()), nil, &out)

			err := r.Run(context.Background(), zerolog.Nop(), rip.Options{Artist: "Soda Stereo", Album: test.album})
			require.ErrorIs(t, err, rip.ErrAlbumNotFound)
			assert.Contains(t, out.String(), "ERROR: Soda Stereo no tiene un disco "+test.album)
			assert.Empty(t, dl.Downloads())
		})
	}
}

func TestRunSimulateSingleAlbum(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dir := t.TempDir()
	dl := &fakeDownloader{}
	r := rip.NewRunner(newClient(t, sodaPages()), dl, fs.DownloadsDirFrom(dir), nil, &out)

	err := r.Run(context.Background(), zerolog.Nop(), rip.Options{Artist: "Soda Stereo", Album: "signos", Simulate: true})
	require.NoError(t, err)

	downloads := dl.Downloads()
	require.Len(t, downloads, 3)
	for i, suffix := range []string{"01 - s1.%(ext)s", "02 - s2.%(ext)s", "03 - s3.%(ext)s"} {
		assert.True(t, strings.HasSuffix(downloads[i].template, suffix), downloads[i].template)
		assert.True(t, downloads[i].simulate)
	}
	assert.Equal(t, "Soda Stereo s1", downloads[0].query)

	assert.Contains(t, out.String(), "Obteniendo información de Soda Stereo...")
	assert.Contains(t, out.String(), "Obteniendo lista de temas...")
	assert.Contains(t, out.String(), " 02 - s2")

	albumDir := filepath.Join(dir, "Soda Stereo", "1986 - Signos")
	assert.DirExists(t, albumDir)
	assert.NoFileExists(t, filepath.Join(albumDir, "album.json"))
}

func TestRunAllAlbums(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dir := t.TempDir()
	dl := &fakeDownloader{fail: map[string]bool{"Soda Stereo s2": true}}
	r := rip.NewRunner(newClient(t, sodaPages()), dl, fs.DownloadsDirFrom(dir), nil, &out)

	err := r.Run(context.Background(), zerolog.Nop(), rip.Options{Artist: "Soda Stereo"})
	require.NoError(t, err)

	assert.Len(t, dl.Downloads(), 4)
	assert.Contains(t, out.String(), "Signos:")
	assert.Contains(t, out.String(), "Doble Vida:")
	assert.Contains(t, out.String(), "Ignorando Perdido")

	info, err := fs.DownloadsDirFrom(dir).Artist("Soda Stereo").Album("1986", "Signos").InfoFile.Read()
	require.NoError(t, err)
	assert.Equal(t, "Soda Stereo", info.Artist)
	assert.Equal(t, "1986", info.Year)
	require.Len(t, info.Tracks, 3)
	assert.Equal(t, "01 - s1.mp3", info.Tracks[0].File)
	assert.Equal(t, "audio/mpeg", info.Tracks[0].Mime)
	assert.Nil(t, info.Tracks[1].Match)
	assert.Empty(t, info.Tracks[1].File)
	require.NotNil(t, info.Tracks[2].Match)
	assert.Equal(t, "id-Soda Stereo s3", info.Tracks[2].Match.ID)
}

func TestRunSkipsDownloadedTracks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, h.Close()) })

	client := newClient(t, sodaPages())
	opts := rip.Options{Artist: "Soda Stereo", Album: "Doble Vida"}

	dl := &fakeDownloader{}
	require.NoError(t, rip.NewRunner(client, dl, fs.DownloadsDirFrom(dir), h, &bytes.Buffer{}).Run(context.Background(), zerolog.Nop(), opts))
	assert.Len(t, dl.Downloads(), 1)

	var out bytes.Buffer
	again := &fakeDownloader{}
	require.NoError(t, rip.NewRunner(client, again, fs.DownloadsDirFrom(dir), h, &out).Run(context.Background(), zerolog.Nop(), opts))
	assert.Empty(t, again.Downloads())
	assert.Contains(t, out.String(), "Ya descargado")

	info, err := fs.DownloadsDirFrom(dir).Artist("Soda Stereo").Album("1988", "Doble Vida").InfoFile.Read()
	require.NoError(t, err)
	require.Len(t, info.Tracks, 1)
	assert.Equal(t, "01 - d1.mp3", info.Tracks[0].File)
	assert.Equal(t, "audio/mpeg", info.Tracks[0].Mime)
	require.NotNil(t, info.Tracks[0].Match)
	assert.Equal(t, "id-Soda Stereo d1", info.Tracks[0].Match.ID)
}

func TestRunSelect(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{}
	r := rip.NewRunner(newClient(t, sodaPages()), dl, fs.DownloadsDirFrom(t.TempDir()), nil, &bytes.Buffer{})

	var offered []string
	opts := rip.Options{
		Artist:   "Soda Stereo",
		Simulate: true,
		Select: func(albums []*rockar.Album) ([]*rockar.Album, error) {
			for _, a := range albums {
				offered = append(offered, a.Name)
			}

			return albums[1:2], nil
		},
	}
	require.NoError(t, r.Run(context.Background(), zerolog.Nop(), opts))

	assert.Equal(t, []string{"Signos", "Doble Vida", "Perdido"}, offered)
	downloads := dl.Downloads()
	require.Len(t, downloads, 1)
	assert.Equal(t, "Soda Stereo d1", downloads[0].query)
}

func TestRunSelectError(t *testing.T) {
	t.Parallel()

	r := rip.NewRunner(newClient(t, sodaPages()), &fakeDownloader{}, fs.DownloadsDirFrom(t.TempDir()), nil, &bytes.Buffer{})

	opts := rip.Options{
		Artist: "Soda Stereo",
		Select: func([]*rockar.Album) ([]*rockar.Album, error) { return nil, context.Canceled },
	}
	err := r.Run(context.Background(), zerolog.Nop(), opts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunList(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dir := t.TempDir()
	dl := &fakeDownloader{}
	r := rip.NewRunner(newClient(t, sodaPages()), dl, fs.DownloadsDirFrom(dir), nil, &out)

	require.NoError(t, r.Run(context.Background(), zerolog.Nop(), rip.Options{Artist: "Soda Stereo", List: true}))

	assert.Empty(t, dl.Downloads())
	assert.Contains(t, out.String(), "Signos")
	assert.Contains(t, out.String(), "1988")
	assert.Contains(t, out.String(), "Perdido")
	assert.NoDirExists(t, filepath.Join(dir, "Soda Stereo"))
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := rip.NewRunner(newClient(t, sodaPages()), &fakeDownloader{}, fs.DownloadsDirFrom(t.TempDir()), nil, &bytes.Buffer{})
	err := r.Run(ctx, zerolog.Nop(), rip.Options{Artist: "Soda Stereo"})
	require.ErrorIs(t, err, context.Canceled)
}
