package httputil

import (
	"fmt"
	"io"
	"net/http"

	"golang.org/x/text/encoding/charmap"

	"github.com/xeptore/rockar/unit"
)

// maxBodySize bounds catalog pages; real ones are a few hundred kilobytes.
const maxBodySize = 8 * unit.Mebibyte

func ReadResponseBody(resp *http.Response) ([]byte, error) {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	return respBody, nil
}

// DecodeLatin1 decodes a single-byte ISO-8859-1 body into a Go string.
func DecodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if nil != err {
		return "", fmt.Errorf("failed to decode latin-1 body: %v", err)
	}

	return string(out), nil
}

func IsSuccessStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// IsRetryableStatus reports whether a request answered with code may succeed
// when sent again later.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return code >= http.StatusInternalServerError
	}
}
