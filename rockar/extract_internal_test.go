package rockar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []string
}

func (r *recorder) startTag(name string, attrs map[string]string) {
	r.events = append(r.events, "<"+name+" href="+attrs["href"]+">")
}

func (r *recorder) text(data string) {
	r.events = append(r.events, "text:"+data)
}

func (r *recorder) endTag(name string) {
	r.events = append(r.events, "</"+name+">")
}

func TestWalk(t *testing.T) {
	t.Parallel()

	var r recorder
	walk(`<!DOCTYPE html><p>A &amp; B<!-- skip --><a href="/x" href="/y">C</a><br/></p>`, &r)

	assert.Equal(t, []string{
		"<p href=>",
		"text:A & B",
		"<a href=/x>",
		"text:C",
		"</a>",
		"<br href=>",
		"</p>",
	}, r.events)
}

func TestArtistExtractorStates(t *testing.T) {
	t.Parallel()

	var x artistExtractor
	x.text("Intro")
	x.startTag("a", map[string]string{"href": "/before"})
	assert.Equal(t, discographyIdle, x.state)
	assert.Empty(t, x.records)

	x.text("  Discografía  ")
	assert.Equal(t, discographyScanning, x.state)

	x.text("orphan text")
	x.startTag("a", map[string]string{"href": "/uno"})
	x.text("Uno")
	x.text(`\n`)
	x.text(" ")
	x.text("(1990)")
	x.startTag("a", map[string]string{})
	x.text("Dos")
	x.startTag("b", nil)
	assert.Equal(t, discographyDone, x.state)

	x.startTag("a", map[string]string{"href": "/tres"})
	x.text("Tres")
	x.text("Discografía")
	assert.Equal(t, discographyDone, x.state)

	assert.Equal(t, []albumRecord{
		{href: "/uno", fields: []string{"Uno", "(1990)"}},
		{href: "", fields: []string{"Dos"}},
	}, x.records)
	assert.Empty(t, x.records[1].field(1))
}

func TestAlbumExtractorStates(t *testing.T) {
	t.Parallel()

	var x albumExtractor
	x.text("Tema suelto")
	x.endTag("ol")
	assert.Equal(t, trackListIdle, x.state)

	x.text(`\nLa lista de temas:\n`)
	assert.Equal(t, trackListScanning, x.state)

	x.text("Uno")
	x.text(`\n`)
	x.text("Uno")
	x.endTag("ul")
	x.text("Dos")
	x.endTag("ol")
	assert.Equal(t, trackListIdle, x.state)
	x.text("Bonus")

	assert.Equal(t, []string{"Uno", "Uno", "Dos"}, x.songs)
}

func TestTrimEscapedNewlines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", trimEscapedNewlines(`\n`))
	assert.Equal(t, "Zen", trimEscapedNewlines(`\n\nZen \n`))
	assert.Equal(t, `Un \n medio`, trimEscapedNewlines(`Un \n medio`))
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	const page = "/artistas/soda-stereo.shtml"

	assert.Equal(t, "/discos/signos.shtml", resolveLink(page, "/discos/signos.shtml"))
	assert.Equal(t, "/artistas/discos/signos.shtml", resolveLink(page, "discos/signos.shtml"))
	assert.Equal(t, "/artistas/signos.shtml?id=2", resolveLink(page, " signos.shtml?id=2 "))
	assert.Equal(t, "http://www.rock.com.ar/x.shtml", resolveLink(page, "http://www.rock.com.ar/x.shtml"))
}
