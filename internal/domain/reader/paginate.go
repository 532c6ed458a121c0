package reader

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// PageSoftCap is the size a page is not grown past once it holds
	// PageSoftFloor characters.
	PageSoftCap = 800
	// PageSoftFloor is the minimum size of every page but the last.
	PageSoftFloor = 200
	// MaxPages bounds the number of pages produced from one text.
	MaxPages = 50
)

// Page is one readable and narratable unit of a book.
type Page struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Paginate splits text into sentences and packs them greedily into pages.
// A page is closed when the next sentence would push it past PageSoftCap
// and it already holds more than PageSoftFloor characters, so a single
// long sentence may exceed the cap. At most MaxPages pages are returned and
// an empty text yields the single placeholder page.
func Paginate(text string) []Page {
	var (
		pages  []Page
		cur    strings.Builder
		curLen int
	)

	emit := func() {
		pages = append(pages, Page{Index: len(pages), Text: cur.String()})
		cur.Reset()
		curLen = 0
	}

	for _, sentence := range SplitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if curLen+n > PageSoftCap && curLen > PageSoftFloor {
			emit()
			if len(pages) >= MaxPages {
				break
			}
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(sentence)
		curLen += n
	}

	if curLen > 0 && len(pages) < MaxPages {
		emit()
	}
	if len(pages) == 0 {
		return placeholder(ContentUnavailable)
	}
	return pages
}

// SplitSentences cuts text at every whitespace run that follows a '.', '!'
// or '?'. Whitespace inside a sentence is kept as is.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		out   []string
		start int
		prev  rune
	)
	for i, r := range text {
		if start >= 0 && unicode.IsSpace(r) && isTerminator(prev) {
			out = append(out, text[start:i])
			start = -1
		}
		if start < 0 && !unicode.IsSpace(r) {
			start = i
		}
		if start >= 0 {
			prev = r
		}
	}
	return append(out, text[start:])
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func placeholder(text string) []Page {
	return []Page{{Index: 0, Text: text}}
}
