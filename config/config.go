package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/xeptore/rockar/redact"
)

const DefaultFilename = "config.yaml"

type Config struct {
	Log        Log        `yaml:"log"`
	Site       Site       `yaml:"site"`
	Downloader Downloader `yaml:"downloader"`
	Output     Output     `yaml:"output"`
	History    History    `yaml:"history"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("site", c.Site.ToDict()).
		Dict("downloader", c.Downloader.ToDict()).
		Dict("output", c.Output.ToDict()).
		Dict("history", c.History.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Site.setDefaults()
	c.Downloader.setDefaults()
	c.Output.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Site.validate(); nil != err {
		return fmt.Errorf("site config validation failed: %v", err)
	}

	if err := c.Downloader.validate(); nil != err {
		return fmt.Errorf("downloader config validation failed: %v", err)
	}

	if err := c.Output.validate(); nil != err {
		return fmt.Errorf("output config validation failed: %v", err)
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

// Site configures access to the artist catalog.
type Site struct {
	BaseURL       string   `yaml:"base_url"`
	UserAgent     string   `yaml:"user_agent"`
	Timeout       Duration `yaml:"timeout"`
	Retries       int      `yaml:"retries"`
	RetryInterval Duration `yaml:"retry_interval"`
	MinInterval   Duration `yaml:"min_interval"`
	Proxy         string   `yaml:"-"`
}

func (c *Site) ToDict() *zerolog.Event {
	return zerolog.
		Dict().
		Str("base_url", c.BaseURL).
		Str("user_agent", c.UserAgent).
		Str("timeout", c.Timeout.String()).
		Int("retries", c.Retries).
		Str("retry_interval", c.RetryInterval.String()).
		Str("min_interval", c.MinInterval.String()).
		Str("proxy", redact.URL(c.Proxy))
}

func (c *Site) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://www.rock.com.ar"
	}

	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	}
}

func (c *Site) validate() error {
	u, err := url.Parse(c.BaseURL)
	if nil != err {
		return fmt.Errorf("base_url is not a valid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("base_url must include a host")
	}

	if c.Timeout.Duration < 0 {
		return errors.New("timeout must not be negative")
	}

	if c.Retries < 0 {
		return errors.New("retries must not be negative")
	}

	if c.RetryInterval.Duration < 0 {
		return errors.New("retry_interval must not be negative")
	}

	if c.MinInterval.Duration < 0 {
		return errors.New("min_interval must not be negative")
	}

	if c.Proxy != "" {
		p, err := url.Parse(c.Proxy)
		if nil != err {
			return fmt.Errorf("proxy is not a valid URL: %v", err)
		}

		if !slices.Contains([]string{"http", "https", "socks5", "socks5h"}, p.Scheme) {
			return fmt.Errorf("proxy scheme must be one of: http, https, socks5, socks5h, got: %s", p.Scheme)
		}
	}

	return nil
}

// Downloader configures the external search-and-download tool.
type Downloader struct {
	Command     string   `yaml:"command"`
	AudioFormat string   `yaml:"audio_format"`
	Timeout     Duration `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	Pause       Duration `yaml:"pause"`
	ExtraArgs   []string `yaml:"extra_args"`
}

func (c *Downloader) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("command", c.Command).
		Str("audio_format", c.AudioFormat).
		Str("timeout", c.Timeout.String()).
		Int("retries", c.Retries).
		Str("pause", c.Pause.String()).
		Strs("extra_args", c.ExtraArgs)
}

func (c *Downloader) setDefaults() {
	if c.Command == "" {
		c.Command = "yt-dlp"
	}

	if c.AudioFormat == "" {
		c.AudioFormat = "mp3"
	}
}

func (c *Downloader) validate() error {
	if !slices.Contains([]string{"best", "aac", "alac", "flac", "m4a", "mp3", "opus", "vorbis", "wav"}, c.AudioFormat) {
		return fmt.Errorf("audio_format is not supported: %s", c.AudioFormat)
	}

	if c.Timeout.Duration < 0 {
		return errors.New("timeout must not be negative")
	}

	if c.Retries < 0 {
		return errors.New("retries must not be negative")
	}

	if c.Pause.Duration < 0 {
		return errors.New("pause must not be negative")
	}

	return nil
}

type Output struct {
	Dir string `yaml:"dir"`
}

func (c *Output) ToDict() *zerolog.Event {
	return zerolog.Dict().Str("dir", c.Dir)
}

func (c *Output) setDefaults() {
	if c.Dir == "" {
		c.Dir = "."
	}
}

func (c *Output) validate() error {
	if i, err := os.Stat(c.Dir); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("dir does not exist")
		}

		return fmt.Errorf("failed to stat dir: %v", err)
	} else if !i.IsDir() {
		return errors.New("dir must be a directory")
	}

	return nil
}

// History points to the database of finished tracks. An empty path disables it.
type History struct {
	Path string `yaml:"path"`
}

func (c *History) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("path", c.Path).
		Bool("enabled", c.Enabled())
}

func (c *History) Enabled() bool {
	return c.Path != ""
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	d.Duration = parsed

	return nil
}

// Load reads the YAML file at filename. When filename is empty the default
// file is tried, and its absence yields the built-in defaults. Fields absent
// from the file keep their defaults; explicit zero values are kept.
func Load(filename string) (*Config, error) {
	path := lo.Ternary(len(filename) > 0, filename, DefaultFilename)

	conf := Default()
	data, err := os.ReadFile(path)
	if nil != err {
		if len(filename) > 0 || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
		}
	} else if err := yaml.Unmarshal(data, &conf); nil != err {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	if v := os.Getenv("ROCKAR_BASE_URL"); v != "" {
		conf.Site.BaseURL = v
	}
	conf.Site.Proxy = os.Getenv("ROCKAR_PROXY")
	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return &conf, nil
}

// Default returns the built-in configuration.
func Default() Config {
	conf := Config{
		Log: Log{
			Level:  "",
			Format: "",
		},
		Site: Site{
			BaseURL:       "",
			UserAgent:     "",
			Timeout:       Duration{Duration: 10 * time.Second},
			Retries:       2,
			RetryInterval: Duration{Duration: 500 * time.Millisecond},
			MinInterval:   Duration{Duration: 250 * time.Millisecond},
			Proxy:         "",
		},
		Downloader: Downloader{
			Command:     "",
			AudioFormat: "",
			Timeout:     Duration{Duration: 10 * time.Minute},
			Retries:     1,
			Pause:       Duration{Duration: 2 * time.Second},
			ExtraArgs:   nil,
		},
		Output: Output{
			Dir: "",
		},
		History: History{
			Path: "",
		},
	}
	conf.setDefaults()

	return conf
}
