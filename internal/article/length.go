package article

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// PlainText strips markup from an HTML fragment.
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// TextLength counts the characters of fragment once markup is removed. The
// text is NFC-normalised so composed and decomposed kana count the same.
func TextLength(fragment string) int {
	if fragment == "" {
		return 0
	}
	return utf8.RuneCountInString(norm.NFC.String(PlainText(fragment)))
}
