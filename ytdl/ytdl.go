package ytdl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/xeptore/rockar/config"
	"github.com/xeptore/rockar/types"
)

const searchPrefix = "ytsearch1:"

var (
	ErrNoMatch       = errors.New("search returned no result")
	ErrNotConfigured = errors.New("output template is not configured")
)

// Downloader searches for a free-text query and downloads the best match as
// audio by running an external yt-dlp compatible command.
type Downloader struct {
	conf           config.Downloader
	outputTemplate string
	simulate       bool
	initialBackoff time.Duration
}

func New(conf config.Downloader) *Downloader {
	return &Downloader{
		conf:           conf,
		outputTemplate: "",
		simulate:       false,
		initialBackoff: 2 * time.Second,
	}
}

// Configure sets where the next downloads are written. In simulate mode the
// search runs but nothing is written.
func (d *Downloader) Configure(outputTemplate string, simulate bool) {
	d.outputTemplate = outputTemplate
	d.simulate = simulate
}

func (d *Downloader) args(query string) []string {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"--extract-audio",
		"--audio-format", d.conf.AudioFormat,
		"--output", d.outputTemplate,
		"--dump-json",
	}
	if !d.simulate {
		args = append(args, "--no-simulate")
	}
	args = append(args, d.conf.ExtraArgs...)

	return append(args, searchPrefix+query)
}

func (d *Downloader) Download(ctx context.Context, logger zerolog.Logger, query string) (*types.Match, error) {
	if d.outputTemplate == "" {
		return nil, ErrNotConfigured
	}

	logger = logger.With().Str("query", query).Bool("simulate", d.simulate).Logger()

	var match *types.Match
	op := func() error {
		m, err := d.run(ctx, logger, query)
		if nil != err {
			if nil != ctx.Err() || errors.Is(err, ErrNoMatch) || errors.Is(err, exec.ErrNotFound) {
				return backoff.Permanent(err)
			}

			return err
		}
		match = m

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(d.initialBackoff),
				backoff.WithMaxInterval(time.Minute),
			),
			uint64(d.conf.Retries), //nolint:gosec
		),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Msg("Download failed, retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); nil != err {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	return match, nil
}

func (d *Downloader) run(ctx context.Context, logger zerolog.Logger, query string) (*types.Match, error) {
	if d.conf.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.conf.Timeout.Duration)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.conf.Command, d.args(query)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug().Strs("args", cmd.Args).Msg("Running downloader")
	if err := cmd.Run(); nil != err {
		msg := lastLine(stderr.String())
		logger.Debug().Err(err).Str("stderr", msg).Msg("Downloader command failed")
		if msg != "" {
			return nil, fmt.Errorf("failed to run %s: %w: %s", d.conf.Command, err, msg)
		}

		return nil, fmt.Errorf("failed to run %s: %w", d.conf.Command, err)
	}

	return parseMatch(stdout.Bytes())
}

// parseMatch reads the info JSON the downloader prints for the selected
// entry. Only the last JSON line is considered.
func parseMatch(out []byte) (*types.Match, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !gjson.Valid(line) {
			continue
		}

		res := gjson.Parse(line)
		if !res.IsObject() || !res.Get("id").Exists() {
			continue
		}

		channel := res.Get("channel").String()
		if channel == "" {
			channel = res.Get("uploader").String()
		}

		return &types.Match{
			ID:       res.Get("id").String(),
			Title:    res.Get("title").String(),
			URL:      res.Get("webpage_url").String(),
			Channel:  channel,
			Duration: res.Get("duration").Float(),
		}, nil
	}

	return nil, ErrNoMatch
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}

	return s
}
