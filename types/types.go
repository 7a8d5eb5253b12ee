package types

import (
	"strconv"

	"github.com/rs/zerolog"
)

// Match is the search result the downloader picked for a query.
type Match struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

func (m Match) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("id", m.ID).
		Str("title", m.Title).
		Str("url", m.URL).
		Str("channel", m.Channel).
		Float64("duration", m.Duration)
}

type StoredTrack struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Query  string `json:"query"`
	File   string `json:"file,omitempty"`
	Mime   string `json:"mime,omitempty"`
	Match  *Match `json:"match,omitempty"`
}

type StoredAlbum struct {
	Artist string        `json:"artist"`
	Name   string        `json:"name"`
	Year   string        `json:"year"`
	Source string        `json:"source"`
	Tracks []StoredTrack `json:"tracks"`
}

func (a StoredAlbum) Caption() string {
	return a.Artist + " - " + a.Name + " (" + a.Year + "), " + strconv.Itoa(len(a.Tracks)) + " temas"
}
