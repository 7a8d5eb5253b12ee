package redact

import (
	"math"
	"net/url"
	"strings"
)

func String(s string) string {
	l := len(s)

	var flag int
	if l%4 != 0 {
		flag = 1
	}

	return s[0:int(math.Floor(float64(l)*.25))] +
		strings.Repeat("*", int(math.RoundToEven(float64(l)*.5))+(1&flag)) +
		s[int(math.Floor(float64(l)*.75))+(1&flag):]
}

// URL hides the password of a URL's userinfo, keeping the rest readable.
func URL(s string) string {
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if nil != err {
		return String(s)
	}

	return u.Redacted()
}
