package prompt

import (
	"strings"

	"github.com/smartroute/smartroute/internal/gazetteer"
	"github.com/smartroute/smartroute/internal/textnorm"
)

const directiveWindow = 4

const clauseBreaks = ",;!?"

var negationTokens = wordSet(
	"kullanma", "kullanmadan", "kullanmayın", "kullanmayalım",
	"geçme", "geçmeden", "geçmeyin", "geçmeyelim",
	"kaçın", "kaçınarak", "avoid", "without",
)

var affirmativeTokens = wordSet(
	"kullan", "kullanarak", "kullanın", "geç", "geçerek", "geçin", "üzerinden",
	"use", "via",
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

type stance int

const (
	stanceMentioned stance = iota
	stanceUse
	stanceAvoid
)

func (s stance) String() string {
	switch s {
	case stanceUse:
		return "use"
	case stanceAvoid:
		return "avoid"
	default:
		return "mentioned"
	}
}

// extractDirectives classifies each infrastructure name found in lower.
// A negation within the window wins over an affirmation; a bare mention
// implies intended use.
func (p *Parser) extractDirectives(lower string, words []textnorm.Word, entries []gazetteer.Entry) []Directive {
	out := []Directive{}
	for _, e := range entries {
		i := textnorm.IndexWordStart(lower, e.Lower, 0)
		if i < 0 {
			continue
		}
		s := classify(window(lower, words, i, i+len(e.Lower)))
		p.logger.Debug().Str("name", e.Name).Stringer("stance", s).Msg("infrastructure directive")
		out = append(out, Directive{Name: e.Name, MustUse: s != stanceAvoid})
	}
	return out
}

// window returns up to directiveWindow words before start and after end,
// without crossing clause punctuation.
func window(lower string, words []textnorm.Word, start, end int) []textnorm.Word {
	clauseStart := strings.LastIndexAny(lower[:start], clauseBreaks) + 1
	clauseEnd := len(lower)
	if i := strings.IndexAny(lower[end:], clauseBreaks); i >= 0 {
		clauseEnd = end + i
	}

	var before, after []textnorm.Word
	for _, w := range words {
		switch {
		case w.Start >= clauseStart && w.End <= start:
			before = append(before, w)
		case w.Start >= end && w.End <= clauseEnd && len(after) < directiveWindow:
			after = append(after, w)
		}
	}
	if len(before) > directiveWindow {
		before = before[len(before)-directiveWindow:]
	}
	return append(before, after...)
}

func classify(words []textnorm.Word) stance {
	use := false
	for _, w := range words {
		if negationTokens[w.Text] {
			return stanceAvoid
		}
		if affirmativeTokens[w.Text] {
			use = true
		}
	}
	if use {
		return stanceUse
	}
	return stanceMentioned
}
