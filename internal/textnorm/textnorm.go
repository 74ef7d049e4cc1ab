// Package textnorm holds the Turkish-aware text folding shared by the prompt
// parser, the gazetteer and the toll heuristic.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lower lower-cases s with Turkish casing rules (İ→i, I→ı).
// A fresh Caser is used per call because Caser is not safe for concurrent use.
func Lower(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// Key lower-cases s like Lower and then merges dotless ı into i, so that
// "Istanbul" and "İstanbul" both become "istanbul". Rune offsets of s are
// preserved.
func Key(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 'ı' {
			return 'i'
		}
		return r
	}, Lower(s))
}

// Title capitalizes each word of s with Turkish casing rules.
func Title(s string) string {
	return cases.Title(language.Turkish).String(s)
}

// Fold returns a diacritic-insensitive key for s: "İzmir", "IZMIR" and
// "izmir" all fold to "izmir", and "Muğla" folds to "mugla".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch r {
		case 'ı', 'I':
			r = 'i'
		default:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Word is a run of letters or digits with its byte offsets in the source text.
type Word struct {
	Text  string
	Start int
	End   int
}

// Words splits s into runs of letters and digits. Apostrophes, punctuation
// and whitespace separate words.
func Words(s string) []Word {
	var words []Word
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, Word{Text: s[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, Word{Text: s[start:], Start: start, End: len(s)})
	}
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// AtWordStart reports whether byte offset i in s begins a word, i.e. it is
// not preceded by a letter or digit.
func AtWordStart(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

// IndexWordStart returns the first offset at or after from where sub occurs in s
// at a word start, or -1.
func IndexWordStart(s, sub string, from int) int {
	for from <= len(s) {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return -1
		}
		at := from + i
		if AtWordStart(s, at) {
			return at
		}
		_, size := utf8.DecodeRuneInString(s[at:])
		from = at + size
	}
	return -1
}

// Blank replaces s[start:end] with one space per rune, keeping the rune
// offsets of the rest of s intact.
func Blank(s string, start, end int) string {
	return s[:start] + strings.Repeat(" ", utf8.RuneCountInString(s[start:end])) + s[end:]
}

// StripHTML returns the text content of an HTML fragment such as a
// directions step instruction. Adjacent text nodes are joined with a space.
func StripHTML(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return fragment
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var parts []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.TextToken:
			if txt := strings.TrimSpace(string(z.Text())); txt != "" {
				parts = append(parts, txt)
			}
		}
	}
}
