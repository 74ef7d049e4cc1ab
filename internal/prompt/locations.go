package prompt

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smartroute/smartroute/internal/gazetteer"
	"github.com/smartroute/smartroute/internal/textnorm"
)

// candidate is a resolved location and its first rune offset in the
// lower-cased prompt, or -1 when the name could not be located.
type candidate struct {
	name   string
	offset int
	seq    int
}

type candidateSet struct {
	items []candidate
	index map[string]int
}

func newCandidateSet() *candidateSet {
	return &candidateSet{index: make(map[string]int)}
}

func (s *candidateSet) add(name string, offset int) {
	key := textnorm.Fold(name)
	if i, ok := s.index[key]; ok {
		if offset >= 0 && (s.items[i].offset < 0 || offset < s.items[i].offset) {
			s.items[i].offset = offset
		}
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, candidate{name: name, offset: offset, seq: len(s.items)})
}

func (s *candidateSet) empty() bool { return len(s.items) == 0 }

// ordered returns names by ascending offset. Unlocated names come last in
// discovery order.
func (s *candidateSet) ordered() []string {
	items := append([]candidate(nil), s.items...)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.offset < 0 && b.offset < 0:
			return a.seq < b.seq
		case a.offset < 0:
			return false
		case b.offset < 0:
			return true
		default:
			return a.offset < b.offset
		}
	})

	names := make([]string, len(items))
	for i, c := range items {
		names[i] = c.name
	}
	return names
}

func runeOffset(s string, byteIdx int) int {
	return utf8.RuneCountInString(s[:byteIdx])
}

// maskInfrastructure blanks bridge and highway names so that place names
// embedded in them ("Fatih Sultan Mehmet Köprüsü") are not read as stops.
func maskInfrastructure(lower string, gaz *gazetteer.Gazetteer) string {
	for _, e := range gaz.Infrastructure() {
		from := 0
		for {
			i := textnorm.IndexWordStart(lower, e.Lower, from)
			if i < 0 {
				break
			}
			lower = textnorm.Blank(lower, i, i+len(e.Lower))
			from = i + utf8.RuneCountInString(e.Lower)
		}
	}
	return lower
}

// The match functions search places, the masked prompt passed through
// textnorm.Key, so ASCII spellings such as "Istanbul" or "Izmir" are found.
// Rune offsets in places equal those in the lower-cased prompt.

func (p *Parser) matchDistricts(places string, set *candidateSet) {
	for _, e := range p.gaz.Districts() {
		if i := textnorm.IndexWordStart(places, e.Key, 0); i >= 0 {
			set.add(p.gaz.QualifyDistrict(e.Name), runeOffset(places, i))
		}
	}
}

// matchRegions implements the "(<word>[/-])?<region>" pattern. A qualifier
// that is itself a region is not bound; both regions are kept separately.
// masked supplies the original spelling of unknown qualifiers.
func (p *Parser) matchRegions(places, masked string, set *candidateSet) {
	for _, e := range p.gaz.Regions() {
		from := 0
		for {
			i := textnorm.IndexWordStart(places, e.Key, from)
			if i < 0 {
				break
			}
			from = i + len(e.Key)

			sub, subStart := qualifierBefore(places, i)
			if sub == "" {
				set.add(e.Name, runeOffset(places, i))
				continue
			}

			at := runeOffset(places, subStart)
			entry, known := p.gaz.Lookup(sub)
			if known && entry.Kind == gazetteer.KindRegion {
				set.add(e.Name, runeOffset(places, i))
				continue
			}
			display := entry.Name
			if !known {
				display = textnorm.Title(runeSpan(masked, at, utf8.RuneCountInString(sub)))
			}
			set.add(display+", "+e.Name, at)
		}
	}
}

// runeSpan returns n runes of s starting at rune offset start.
func runeSpan(s string, start, n int) string {
	b := 0
	for ; start > 0 && b < len(s); start-- {
		_, size := utf8.DecodeRuneInString(s[b:])
		b += size
	}
	e := b
	for ; n > 0 && e < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[e:])
		e += size
	}
	return s[b:e]
}

// qualifierBefore returns the word directly preceding a '/' or '-' at i-1.
func qualifierBefore(s string, i int) (string, int) {
	if i < 2 || (s[i-1] != '/' && s[i-1] != '-') {
		return "", 0
	}
	end := i - 1
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		start -= size
	}
	if start == end {
		return "", 0
	}
	return s[start:end], start
}

// matchTokens is the diacritic-insensitive fallback for spellings such as
// "Izmir" or "Istanbul'dan".
func (p *Parser) matchTokens(places string, set *candidateSet) {
	for _, tok := range tokens(places) {
		name := strings.TrimRight(tok.text, "/,")
		if j := strings.LastIndexAny(name, "/,"); j >= 0 {
			tok.start += j + 1
			name = name[j+1:]
		}
		name = strings.TrimFunc(stripSuffix(name), unicode.IsPunct)
		if name == "" {
			continue
		}
		if resolved, ok := p.gaz.Resolve(name); ok {
			set.add(resolved, runeOffset(places, tok.start))
		}
	}
}

type token struct {
	text  string
	start int
}

// tokens splits on whitespace and sentence punctuation, keeping '/', ',' and
// apostrophes inside tokens.
func tokens(s string) []token {
	var out []token
	start := -1
	for i, r := range s {
		sep := unicode.IsSpace(r) || strings.ContainsRune(".;:!?()[]", r)
		switch {
		case sep && start >= 0:
			out = append(out, token{text: s[start:i], start: start})
			start = -1
		case !sep && start < 0:
			start = i
		}
	}
	if start >= 0 {
		out = append(out, token{text: s[start:], start: start})
	}
	return out
}

// stripSuffix drops a case suffix written after an apostrophe ("Ankara'ya").
func stripSuffix(s string) string {
	if i := strings.IndexAny(s, "'’"); i >= 0 {
		return s[:i]
	}
	return s
}

var keptCategories = map[string]bool{
	CategoryLocation:     true,
	CategoryAddress:      true,
	CategoryOrganization: true,
}

func (p *Parser) matchEntities(lower string, entities []Entity, set *candidateSet) {
	keyed := textnorm.Key(lower)
	for _, ent := range entities {
		if !keptCategories[ent.Category] {
			continue
		}
		name := strings.TrimSpace(stripSuffix(ent.Text))
		resolved, ok := p.gaz.Resolve(name)
		if !ok {
			continue
		}
		offset := -1
		if i := textnorm.IndexWordStart(keyed, textnorm.Key(name), 0); i >= 0 {
			offset = runeOffset(keyed, i)
		}
		set.add(resolved, offset)
	}
}
