package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeptore/rockar/textutil"
	"github.com/xeptore/rockar/types"
)

const albumInfoFilename = "album.json"

type DownloadsDir string

func DownloadsDirFrom(d string) DownloadsDir {
	return DownloadsDir(d)
}

func (dir DownloadsDir) path() string {
	return string(dir)
}

func (dir DownloadsDir) Artist(name string) Artist {
	return Artist{DirPath: filepath.Join(dir.path(), textutil.SanitizeFilename(name))}
}

type Artist struct {
	DirPath string
}

func (a Artist) Create() error {
	return mkdir(a.DirPath)
}

// Album is the "<year> - <name>" directory below the artist directory.
func (a Artist) Album(year, name string) Album {
	dirPath := filepath.Join(a.DirPath, textutil.SanitizeFilename(year+" - "+name))

	return Album{
		DirPath:  dirPath,
		InfoFile: InfoFile[types.StoredAlbum]{Path: filepath.Join(dirPath, albumInfoFilename)},
	}
}

type Album struct {
	DirPath  string
	InfoFile InfoFile[types.StoredAlbum]
}

func (a Album) Create() error {
	return mkdir(a.DirPath)
}

func (a Album) Track(number int, title string) Track {
	return Track{
		dirPath:  a.DirPath,
		BaseName: TrackBaseName(number, title),
	}
}

// TrackBaseName is the file name of a track without its extension.
func TrackBaseName(number int, title string) string {
	return fmt.Sprintf("%02d - %s", number, textutil.SanitizeFilename(title))
}

type Track struct {
	dirPath  string
	BaseName string
}

func (t Track) Path() string {
	return filepath.Join(t.dirPath, t.BaseName)
}

// OutputTemplate is the downloader output path; the downloader fills in the
// extension. Literal percent signs are doubled so the downloader does not
// expand them.
func (t Track) OutputTemplate() string {
	return strings.ReplaceAll(t.Path(), "%", "%%") + ".%(ext)s"
}

// Find returns the path of the downloaded file whatever its extension is.
func (t Track) Find() (string, bool, error) {
	entries, err := os.ReadDir(t.dirPath)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to read album directory: %v", err)
	}

	prefix := t.BaseName + "."
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, ".part") {
			return filepath.Join(t.dirPath, name), true, nil
		}
	}

	return "", false, nil
}

func mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); nil != err {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	return nil
}

type InfoFile[T any] struct {
	Path string
}

func (p InfoFile[T]) Read() (*T, error) {
	return readInfoFile(p)
}

func (p InfoFile[T]) Write(v T) error {
	return writeInfoFile(p, v)
}

func readInfoFile[T any](file InfoFile[T]) (t *T, err error) {
	f, err := os.OpenFile(file.Path, os.O_RDONLY, 0o600)
	if nil != err {
		return nil, fmt.Errorf("failed to open info file for read: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close info file: %v", closeErr))
		}
	}()

	var out T
	if err := json.NewDecoder(f).Decode(&out); nil != err {
		return nil, fmt.Errorf("failed to decode info file contents: %v", err)
	}

	return &out, nil
}

func writeInfoFile[T any](file InfoFile[T], obj T) (err error) {
	f, err := os.OpenFile(file.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if nil != err {
		return fmt.Errorf("failed to open info file for write: %v", err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close info file: %v", closeErr))
		}

		if nil != err {
			if removeErr := os.Remove(file.Path); nil != removeErr && !errors.Is(removeErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("failed to remove incomplete info file: %v", removeErr))
			}
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obj); nil != err {
		return fmt.Errorf("failed to write info content: %v", err)
	}

	if err := f.Sync(); nil != err {
		return fmt.Errorf("failed to sync info file: %v", err)
	}

	return nil
}
