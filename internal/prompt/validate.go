package prompt

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smartroute/smartroute/internal/textnorm"
)

var denylist = map[string]bool{
	"test": true, "deneme": true, "asdf": true, "qwerty": true, "xyz": true,
	"abc": true, "123": true, "1234": true, "12345": true,
	"merhaba": true, "selam": true, "hi": true, "hello": true, "bye": true,
	"görüşürüz": true, "nasılsın": true, "iyi": true, "kötü": true, "güzel": true,
}

// Route-domain keywords match as word prefixes so that suffixed forms
// ("rotayı", "köprüsünden") count.
var routeKeywords = []string{
	"git", "gideyim", "gitmek", "gidiş", "rota", "yol", "güzergah", "köprü",
	"otoyol", "otoban", "seyahat", "yolculuk",
	"route", "bridge", "highway", "travel", "drive",
}

// validate is the cheap gate run before extraction.
func (p *Parser) validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 2 {
		return reject(ReasonTooShort)
	}
	if !strings.ContainsFunc(trimmed, unicode.IsLetter) {
		return reject(ReasonNoLetters)
	}
	if repeatedChar(trimmed) {
		return reject(ReasonRepeatedChar)
	}

	lower := textnorm.Lower(trimmed)
	if denylist[strings.TrimFunc(lower, unicode.IsPunct)] {
		return reject(ReasonFiller)
	}
	if !hasRouteKeyword(lower) && !p.mentionsLocation(lower) {
		return reject(ReasonNoRouteContent)
	}
	return nil
}

func repeatedChar(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

func hasRouteKeyword(lower string) bool {
	for _, w := range textnorm.Words(lower) {
		for _, kw := range routeKeywords {
			if strings.HasPrefix(w.Text, kw) {
				return true
			}
		}
	}
	return false
}

func (p *Parser) mentionsLocation(lower string) bool {
	keyed := textnorm.Key(lower)
	for _, e := range p.gaz.Districts() {
		if textnorm.IndexWordStart(keyed, e.Key, 0) >= 0 {
			return true
		}
	}
	for _, e := range p.gaz.Regions() {
		if textnorm.IndexWordStart(keyed, e.Key, 0) >= 0 {
			return true
		}
	}
	return false
}
