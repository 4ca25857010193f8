// Package textfix repairs the damage text picks up on its way into a corpus:
// mojibake, HTML entities, stray control characters and inconsistent
// Unicode normalization.
package textfix

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

const maxFixRounds = 3

// FixText returns s with entities unescaped, mojibake undone, control
// characters removed, NFC applied and horizontal whitespace collapsed.
func FixText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = unescapeAll(s)
	s = FixMojibake(s)
	s = removeControl(s)
	s = norm.NFC.String(s)
	return collapseSpace(s)
}

// unescapeAll unescapes until no entity is left, so "&amp;lt;" becomes "<".
// Every round that changes s shortens it.
func unescapeAll(s string) string {
	for strings.Contains(s, "&") && strings.Contains(s, ";") {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	return s
}

// FixMojibake undoes UTF-8 text that was decoded as Windows-1252, as in
// "cafÃ©" -> "café". A round is kept only if it lowers the number of
// mojibake sequences.
func FixMojibake(s string) string {
	for i := 0; i < maxFixRounds; i++ {
		bad := badness(s)
		if bad == 0 {
			return s
		}
		raw, err := charmap.Windows1252.NewEncoder().String(s)
		if err != nil || !utf8.ValidString(raw) {
			return s
		}
		if badness(raw) >= bad {
			return s
		}
		s = raw
	}
	return s
}

// badness counts places where a Latin-1 character that would be a UTF-8
// lead byte is followed by one that would be a continuation byte.
func badness(s string) int {
	n := 0
	prevLead := false
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if prevLead && ok && b >= 0x80 && b <= 0xBF {
			n++
		}
		prevLead = ok && b >= 0xC2 && b <= 0xF4
	}
	return n
}

func removeControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n':
			return r
		case '\uFEFF', '\u200B', '\uFFFE':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	last := '\n'
	for _, r := range s {
		if r != '\n' && unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && last != '\n' && r != '\n' {
			b.WriteByte(' ')
		}
		space = false
		last = r
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
