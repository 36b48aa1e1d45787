package htmldoc

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestParseRepairsMalformedMarkup(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<html><body><p>unclosed<div><span>nested`))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("p").Length())
	require.Equal(t, 1, doc.Find("span").Length())
}

func TestTitle(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		doc, err := Parse([]byte(`<head><title>  Hello World  </title></head>`))
		require.NoError(t, err)
		title, ok := doc.Title()
		require.True(t, ok)
		require.Equal(t, "Hello World", title)
	})

	t.Run("absent", func(t *testing.T) {
		doc, err := Parse([]byte(`<body><p>no title</p></body>`))
		require.NoError(t, err)
		_, ok := doc.Title()
		require.False(t, ok)
	})
}

func TestHTMLLang(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<html lang=" en-GB "><body></body></html>`))
	require.NoError(t, err)
	lang, hasTag := doc.HTMLLang()
	require.True(t, hasTag)
	require.Equal(t, "en-GB", lang)

	doc, err = Parse([]byte(`<html><body></body></html>`))
	require.NoError(t, err)
	lang, hasTag = doc.HTMLLang()
	require.True(t, hasTag)
	require.Empty(t, lang)
}

func TestIDsPreserveOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<body><div id="a"></div><span id="b"></span><p id="a"></p></body>`))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "a"}, doc.IDs())
}

func TestSnippetTruncates(t *testing.T) {
	t.Parallel()

	long := `<p class="x">` + strings.Repeat("a", 200) + `</p>`
	doc, err := Parse([]byte(`<body>` + long + `</body>`))
	require.NoError(t, err)

	snippet := Snippet(doc.Find("p"))
	require.Len(t, snippet, SnippetLength)
	require.True(t, strings.HasPrefix(snippet, `<p class="x">`))
}

func TestSnippetNeverSplitsRunes(t *testing.T) {
	t.Parallel()

	long := `<p>` + strings.Repeat("é", 200) + `</p>`
	doc, err := Parse([]byte(`<body>` + long + `</body>`))
	require.NoError(t, err)

	snippet := Snippet(doc.Find("p"))
	require.LessOrEqual(t, len(snippet), SnippetLength)
	require.True(t, utf8.ValidString(snippet))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", Truncate("short", 30))
	require.Equal(t, "abc", Truncate("abcdef", 3))

	// "héllo" puts the two-byte é across the cut at 2.
	got := Truncate("héllo", 2)
	require.Equal(t, "h", got)
	require.True(t, utf8.ValidString(got))

	got = Truncate(strings.Repeat("世", 10), 10)
	require.LessOrEqual(t, len(got), 10)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("世", 3), got)
}

func TestAttrAndText(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<body><a href=" /x " title="">  go  </a></body>`))
	require.NoError(t, err)
	sel := doc.Find("a")
	require.Equal(t, "/x", Attr(sel, "href"))
	require.Empty(t, Attr(sel, "missing"))
	require.Equal(t, "go", Text(sel))
}
