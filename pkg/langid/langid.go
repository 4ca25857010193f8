// Package langid detects the language of a line of text and normalizes
// language codes to BCP 47.
package langid

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Result is a detection outcome.
type Result struct {
	Language   string // BCP 47 base language, e.g. "en", "ja", "zh"
	Confidence float64
	Reliable   bool
}

const (
	minLetters        = 3
	defaultConfidence = 0.5
)

// Detector wraps whatlanggo with an optional allow-list.
type Detector struct {
	opts          whatlanggo.Options
	MinConfidence float64
}

// NewDetector returns a Detector restricted to the given languages. An empty
// list allows every language whatlanggo knows.
func NewDetector(languages ...string) (*Detector, error) {
	d := &Detector{MinConfidence: defaultConfidence}
	if len(languages) == 0 {
		return d, nil
	}
	d.opts.Whitelist = make(map[whatlanggo.Lang]bool, len(languages))
	for _, code := range languages {
		lang, err := toWhatlang(code)
		if err != nil {
			return nil, err
		}
		d.opts.Whitelist[lang] = true
	}
	return d, nil
}

// Detect returns the language of text. ok is false when the text has too
// few letters to judge or the guess is below the confidence floor.
func (d *Detector) Detect(text string) (Result, bool) {
	if countLetters(text) < minLetters {
		return Result{}, false
	}
	var info whatlanggo.Info
	if d.opts.Whitelist != nil {
		info = whatlanggo.DetectWithOptions(text, d.opts)
	} else {
		info = whatlanggo.Detect(text)
	}
	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	if code == "" {
		return Result{}, false
	}
	res := Result{
		Language:   Base(code),
		Confidence: info.Confidence,
		Reliable:   info.IsReliable(),
	}
	if res.Confidence < d.MinConfidence {
		return res, false
	}
	return res, true
}

var defaultDetector = &Detector{MinConfidence: defaultConfidence}

// Detect runs the unrestricted detector.
func Detect(text string) (Result, bool) {
	return defaultDetector.Detect(text)
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
			if n >= minLetters {
				return n
			}
		}
	}
	return n
}

// Standardize canonicalizes a language tag: "EN_us" becomes "en-US" and
// deprecated codes such as "iw" become "he".
func Standardize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// Base returns the base language subtag of code, or code unchanged if it
// cannot be parsed.
func Base(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

// whatlanggo models Mandarin rather than the macrolanguage.
var whatlangOverrides = map[string]string{
	"zh": "cmn",
}

func toWhatlang(code string) (whatlanggo.Lang, error) {
	std, err := Standardize(code)
	if err != nil {
		return 0, err
	}
	b := Base(std)
	iso3, ok := whatlangOverrides[b]
	if !ok {
		base, err := language.ParseBase(b)
		if err != nil {
			return 0, fmt.Errorf("language code %q: %w", code, err)
		}
		iso3 = base.ISO3()
	}
	lang := whatlanggo.CodeToLang(iso3)
	if lang < 0 {
		return 0, fmt.Errorf("language %q is not supported by the detector", code)
	}
	return lang, nil
}
