package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smartroute/smartroute/internal/textnorm"
)

var monthNames = []string{
	"ocak", "şubat", "mart", "nisan", "mayıs", "haziran",
	"temmuz", "ağustos", "eylül", "ekim", "kasım", "aralık",
}

var (
	monthAlt = "(" + strings.Join(monthNames, "|") + ")"

	reDotDate      = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	reDayMonth     = regexp.MustCompile(`(\d{1,2})\s*` + monthAlt)
	reDayMonthYear = regexp.MustCompile(`(\d{1,2})\s*` + monthAlt + `\s*(\d{4})`)
	reMonth        = regexp.MustCompile(monthAlt)
	reYearAhead    = regexp.MustCompile(`^\s*\d{4}`)
	reTime         = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

func monthNumber(name string) time.Month {
	for i, m := range monthNames {
		if m == name {
			return time.Month(i + 1)
		}
	}
	return 0
}

// firstAtWordStart returns the submatches of the first match of re in s that
// begins a word and satisfies accept.
func firstAtWordStart(re *regexp.Regexp, s string, accept func(end int) bool) []string {
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		if !textnorm.AtWordStart(s, loc[0]) {
			continue
		}
		if accept != nil && !accept(loc[1]) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		return groups
	}
	return nil
}

// extractDate applies the date patterns in strict precedence. The first
// pattern that matches decides; an impossible calendar date yields ok=false.
func extractDate(lower string, defaultYear int) (date string, matched bool, ok bool) {
	if m := firstAtWordStart(reDotDate, lower, nil); m != nil {
		return formatDate(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1]))
	}

	noYearAhead := func(end int) bool { return !reYearAhead.MatchString(lower[end:]) }
	if m := firstAtWordStart(reDayMonth, lower, noYearAhead); m != nil {
		return formatDate(defaultYear, monthNumber(m[2]), atoi(m[1]))
	}
	if m := firstAtWordStart(reDayMonthYear, lower, nil); m != nil {
		return formatDate(atoi(m[3]), monthNumber(m[2]), atoi(m[1]))
	}
	if m := firstAtWordStart(reMonth, lower, nil); m != nil {
		return formatDate(defaultYear, monthNumber(m[1]), 1)
	}
	return "", false, false
}

func formatDate(year int, month time.Month, day int) (string, bool, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if month < time.January || month > time.December || t.Day() != day || t.Month() != month {
		return "", true, false
	}
	return t.Format("2006-01-02"), true, true
}

// extractTime returns the first valid H:MM or HH:MM clock time as HH:MM.
func extractTime(text string) string {
	for _, loc := range reTime.FindAllStringSubmatchIndex(text, -1) {
		if !textnorm.AtWordStart(text, loc[0]) || followedByDigit(text, loc[1]) {
			continue
		}
		h, m := atoi(text[loc[2]:loc[3]]), atoi(text[loc[4]:loc[5]])
		if h > 23 || m > 59 {
			continue
		}
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return ""
}

func followedByDigit(s string, i int) bool {
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
