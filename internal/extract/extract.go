// Package extract pulls the text of the first element matching a CSS
// selector out of an HTML document.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Text parses rawHTML and returns the normalized text of the first element
// matching selector. "No match", malformed markup and invalid selectors all
// degrade to the empty string; extraction has no error channel. Downstream
// comparison treats empty as a regular value.
//
// The selector is compiled with cascadia directly rather than passed to
// goquery.Find, which panics on invalid input.
func Text(rawHTML, selector string) string {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return Normalize(doc.FindMatcher(sel).First().Text())
}

// Normalize collapses runs of whitespace to single spaces and trims the
// result, so that incidental markup reformatting does not register as a
// content change.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
