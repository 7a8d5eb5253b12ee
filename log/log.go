package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/rockar/config"
	"github.com/xeptore/rockar/constants"
)

func FromConfig(conf config.Log) zerolog.Logger {
	return New(os.Stderr, conf)
}

func New(w io.Writer, conf config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(conf.Level)
	if nil != err {
		panic("invalid logging level: " + conf.Level)
	}

	switch strings.ToLower(conf.Format) {
	case "json":
		return withContext(zerolog.New(w)).Level(level)
	case "pretty":
		return withContext(zerolog.New(console(w))).Level(level)
	default:
		panic("invalid logging format: " + conf.Format)
	}
}

func NewDefault() zerolog.Logger {
	return withContext(zerolog.New(console(os.Stderr))).Level(zerolog.InfoLevel)
}

func console(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:          w,
		TimeFormat:   time.RFC3339,
		TimeLocation: time.UTC,
	}
}

func withContext(l zerolog.Logger) zerolog.Logger {
	return l.
		Hook(&stackHook{}).
		With().
		Timestamp().
		Str("version", constants.Version).
		Str("compile_time", constants.CompileTime).
		Logger()
}
