package render

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday"
)

// Telegram's HTML parse mode has no block elements, so they are flattened to text.
var blockReplacer = strings.NewReplacer(
	"<p>", "",
	"</p>", "",
	"<ul>\n", "",
	"</ul>\n", "",
	"<ol>\n", "",
	"</ol>\n", "",
	"<li>", "• ",
	"</li>", "",
	"<br />", "\n",
	"<br>", "\n",
	"<hr />", "",
	"<h1>", "<b>", "</h1>", "</b>",
	"<h2>", "<b>", "</h2>", "</b>",
	"<h3>", "<b>", "</h3>", "</b>",
)

var extraNewlines = regexp.MustCompile(`\n{3,}`)

const (
	htmlFlags  = blackfriday.HTML_USE_XHTML | blackfriday.HTML_SKIP_HTML | blackfriday.HTML_SKIP_IMAGES
	extensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS | blackfriday.EXTENSION_STRIKETHROUGH
)

// ToHTML converts markdown into the HTML subset accepted by Telegram.
// Raw HTML in the input is dropped.
func ToHTML(markdown string) string {
	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	html := string(blackfriday.Markdown([]byte(markdown), renderer, extensions))
	html = blockReplacer.Replace(html)
	html = extraNewlines.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
