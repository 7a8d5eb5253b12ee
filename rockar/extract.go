package rockar

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xeptore/rockar/textutil"
)

const (
	discographyMarker = "Discograf"
	trackListMarker   = "La lista de temas"

	// escapedNewline is a literal backslash followed by n, left in some pages
	// by the site's templating.
	escapedNewline = `\n`
)

// extractor receives markup events in document order.
type extractor interface {
	startTag(name string, attrs map[string]string)
	text(data string)
	endTag(name string)
}

// walk tokenizes body once and feeds every start tag, text node and end tag
// to x. Tokenizer errors end the walk; whatever was extracted so far stays.
func walk(body string, x extractor) {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := make(map[string]string)
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if _, ok := attrs[string(k)]; !ok {
					attrs[string(k)] = string(v)
				}
			}
			x.startTag(string(name), attrs)
		case html.EndTagToken:
			name, _ := z.TagName()
			x.endTag(string(name))
		case html.TextToken:
			x.text(string(z.Text()))
		}
	}
}

type discographyState int

const (
	discographyIdle discographyState = iota
	discographyScanning
	discographyDone
)

// albumRecord is an album entry collected from the discography section:
// the link href followed by every text fragment seen after it.
type albumRecord struct {
	href   string
	fields []string
}

func (r albumRecord) field(i int) string {
	if i < len(r.fields) {
		return r.fields[i]
	}

	return ""
}

// artistExtractor collects album records from an artist page. The
// discography section starts at a text node beginning with "Discograf",
// every anchor inside it opens a new record, and the first bold tag ends it.
type artistExtractor struct {
	state   discographyState
	records []albumRecord
}

func (x *artistExtractor) startTag(name string, attrs map[string]string) {
	if x.state != discographyScanning {
		return
	}

	switch name {
	case "b":
		x.state = discographyDone
	case "a":
		x.records = append(x.records, albumRecord{href: attrs["href"], fields: nil})
	}
}

func (x *artistExtractor) text(data string) {
	data = textutil.CollapseSpaces(data)
	if data == "" || data == escapedNewline {
		return
	}

	switch x.state {
	case discographyIdle:
		if strings.HasPrefix(data, discographyMarker) {
			x.state = discographyScanning
		}
	case discographyScanning:
		if strings.HasPrefix(data, discographyMarker) || len(x.records) == 0 {
			return
		}
		last := &x.records[len(x.records)-1]
		last.fields = append(last.fields, data)
	case discographyDone:
	}
}

func (x *artistExtractor) endTag(string) {}

// albumExtractor collects song titles from an album page: every text node
// between the "La lista de temas" heading and the closing ordered list tag.
type albumExtractor struct {
	state trackListState
	songs []string
}

type trackListState int

const (
	trackListIdle trackListState = iota
	trackListScanning
)

func trimEscapedNewlines(s string) string {
	for strings.HasPrefix(s, escapedNewline) {
		s = strings.TrimSpace(strings.TrimPrefix(s, escapedNewline))
	}

	for strings.HasSuffix(s, escapedNewline) {
		s = strings.TrimSpace(strings.TrimSuffix(s, escapedNewline))
	}

	return s
}

func (x *albumExtractor) startTag(string, map[string]string) {}

func (x *albumExtractor) text(data string) {
	data = trimEscapedNewlines(textutil.CollapseSpaces(data))
	if data == "" {
		return
	}

	if strings.HasPrefix(data, trackListMarker) {
		x.state = trackListScanning
		return
	}

	if x.state == trackListScanning {
		x.songs = append(x.songs, data)
	}
}

func (x *albumExtractor) endTag(name string) {
	if x.state == trackListScanning && name == "ol" {
		x.state = trackListIdle
	}
}
