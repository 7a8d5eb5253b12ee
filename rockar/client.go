package rockar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/xeptore/rockar/config"
	"github.com/xeptore/rockar/httputil"
	"github.com/xeptore/rockar/ratelimit"
)

// Client fetches catalog pages relative to a fixed base origin.
type Client struct {
	baseURL       *url.URL
	userAgent     string
	http          *http.Client
	limiter       *rate.Limiter
	retries       uint64
	retryInterval time.Duration
}

func NewClient(conf config.Site) (*Client, error) {
	base, err := url.Parse(conf.BaseURL)
	if nil != err {
		return nil, fmt.Errorf("failed to parse base url: %v", err)
	}

	transport, err := newTransport(conf.Proxy)
	if nil != err {
		return nil, fmt.Errorf("failed to create transport: %v", err)
	}

	retryInterval := conf.RetryInterval.Duration
	if retryInterval <= 0 {
		retryInterval = time.Millisecond
	}

	return &Client{
		baseURL:   base,
		userAgent: conf.UserAgent,
		http: &http.Client{ //nolint:exhaustruct
			Transport: transport,
			Timeout:   conf.Timeout.Duration,
		},
		limiter:       ratelimit.NewLimiter(conf.MinInterval.Duration),
		retries:       uint64(conf.Retries), //nolint:gosec
		retryInterval: retryInterval,
	}, nil
}

func newTransport(proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if nil != err {
		return nil, fmt.Errorf("failed to parse proxy url: %v", err)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if nil != err {
			return nil, fmt.Errorf("failed to create socks5 dialer: %v", err)
		}

		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("failed to cast proxy to ContextDialer")
		}
		transport.Proxy = nil
		transport.DialContext = dc.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	return transport, nil
}

// Artist returns a lazily fetched artist page for the given display name.
func (c *Client) Artist(name string) *Artist {
	return newArtist(c, name)
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if nil != err {
		return "", fmt.Errorf("failed to parse page path: %v", err)
	}

	return c.baseURL.ResolveReference(ref).String(), nil
}

// get downloads the page at path and returns its decoded body. Timeouts,
// reset or refused connections and server errors are retried.
func (c *Client) get(ctx context.Context, logger zerolog.Logger, path string) (string, error) {
	pageURL, err := c.resolve(path)
	if nil != err {
		logger.Error().Err(err).Str("path", path).Msg("Failed to resolve page url")
		return "", err
	}

	logger = logger.With().Str("url", pageURL).Logger()

	var body string
	err = retry.Do(
		ctx,
		retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.retryInterval)),
		func(ctx context.Context) error {
			b, err := c.fetch(ctx, logger, pageURL)
			if nil != err {
				if isRetryable(err) && nil == ctx.Err() {
					logger.Debug().Err(err).Msg("Retrying page fetch")
					return retry.RetryableError(err)
				}

				return err
			}
			body = b

			return nil
		},
	)
	if nil != err {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}

	return body, nil
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return "unexpected status code " + strconv.Itoa(e.code)
}

func isRetryable(err error) bool {
	var se statusError
	if errors.As(err, &se) {
		return httputil.IsRetryableStatus(se.code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) fetch(ctx context.Context, logger zerolog.Logger, pageURL string) (body string, err error) {
	if err := c.limiter.Wait(ctx); nil != err {
		return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to create get page request")
		return "", fmt.Errorf("failed to create get page request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if nil != err {
		logger.Debug().Err(err).Msg("Failed to send get page request")
		return "", fmt.Errorf("failed to send get page request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			logger.Error().Err(closeErr).Msg("Failed to close get page response body")
			err = errors.Join(err, fmt.Errorf("failed to close get page response body: %v", closeErr))
		}
	}()

	if code := resp.StatusCode; !httputil.IsSuccessStatus(code) {
		logger.Debug().Int("status_code", code).Msg("Unexpected response status code")
		return "", statusError{code: code}
	}

	respBytes, err := httputil.ReadResponseBody(resp)
	if nil != err {
		logger.Debug().Err(err).Msg("Failed to read page body")
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	body, err = httputil.DecodeLatin1(respBytes)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to decode page body")
		return "", fmt.Errorf("failed to decode page body: %w", err)
	}

	return body, nil
}
