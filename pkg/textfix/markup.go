package textfix

import (
	"regexp"

	"github.com/dlclark/regexp2"
)

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content, so that furigana is not counted a second time when the
// article text is extracted ("漢字かんじ"). It works on raw bytes and is safe for
// Shift_JIS too, since '<' is never a trailing byte there.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

type markupRule struct {
	re   *regexp2.Regexp
	repl string
}

// Templates can contain single braces, and tags are only tags when '<' is
// directly followed by a name, so these need lookaround.
var markupRules = []markupRule{
	{regexp2.MustCompile(`\{\{(?:(?!\}\}).)*\}\}`, regexp2.Singleline), ""},
	{regexp2.MustCompile(`\[\[(?:[^\]|]*\|)?([^\]]*)\]\]`, regexp2.None), "$1"},
	{regexp2.MustCompile(`\[(?:https?|ftp)://\S+\s+([^\]]+)\]`, regexp2.None), "$1"},
	{regexp2.MustCompile(`</?(?=[A-Za-z!/])[^<>]*>`, regexp2.None), ""},
	{regexp2.MustCompile(`(?<!')'{2,3}(?!')`, regexp2.None), ""},
}

// StripMarkup removes wiki and HTML markup from extracted text. Link
// labels survive; templates, tags and bold/italic quotes do not.
func StripMarkup(s string) (string, error) {
	var err error
	for _, rule := range markupRules {
		s, err = rule.re.Replace(s, rule.repl, -1, -1)
		if err != nil {
			return "", err
		}
	}
	return collapseSpace(s), nil
}
