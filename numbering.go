package epubclean

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Style selects how chapter numbers are rendered in headings.
type Style int

const (
	// StyleNumeric renders 1, 2, 3...
	StyleNumeric Style = iota
	// StyleWords renders One, Two, Three... (1-99).
	StyleWords
	// StyleRoman renders I, II, III... (1-3999).
	StyleRoman
)

// Rendering limits per style.
const (
	maxWords = 99
	maxRoman = 3999
)

var styleNames = map[Style]string{
	StyleNumeric: "numeric",
	StyleWords:   "words",
	StyleRoman:   "roman",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "Style(" + strconv.Itoa(int(s)) + ")"
}

func (s Style) valid() bool {
	_, ok := styleNames[s]
	return ok
}

// ParseStyle parses a style name. Besides "numeric", "words" and "roman" it
// accepts the editor dialog labels, e.g.
// "Roman Numerals (eg I, II, III...)".
func ParseStyle(s string) (Style, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "numeric" || v == "number" || v == "numbers" || strings.HasPrefix(v, "numeric "):
		return StyleNumeric, nil
	case v == "words" || v == "word" || strings.HasPrefix(v, "words "):
		return StyleWords, nil
	case v == "roman" || strings.HasPrefix(v, "roman "):
		return StyleRoman, nil
	}
	return 0, configError("unknown numbering style %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, configError("unknown numbering style %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(text []byte) error {
	v, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

var (
	onesWords = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	teenWords = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
		"Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tensWords = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

var romanTable = []struct {
	value   int
	numeral string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// FormatNumber renders n in the given style. Numbers a style cannot render
// yield an *UnsupportedNumberError.
func FormatNumber(n int, style Style) (string, error) {
	if n < 1 {
		return "", &UnsupportedNumberError{Number: n, Style: style}
	}
	switch style {
	case StyleNumeric:
		return strconv.Itoa(n), nil
	case StyleWords:
		if n > maxWords {
			return "", &UnsupportedNumberError{Number: n, Style: style}
		}
		return numberToWords(n), nil
	case StyleRoman:
		if n > maxRoman {
			return "", &UnsupportedNumberError{Number: n, Style: style}
		}
		return numberToRoman(n), nil
	}
	return "", configError("unknown numbering style %d", int(style))
}

func numberToWords(n int) string {
	switch {
	case n < 10:
		return onesWords[n]
	case n < 20:
		return teenWords[n-10]
	case n%10 == 0:
		return tensWords[n/10]
	default:
		return tensWords[n/10] + " " + onesWords[n%10]
	}
}

func numberToRoman(n int) string {
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.numeral)
			n -= r.value
		}
	}
	return b.String()
}

// ParseNumber is the inverse of FormatNumber. Words are matched
// case-insensitively and their parts may be joined by a space or hyphen.
// Roman numerals must be uppercase, so words like "Mix" or "Liv" are not
// read as numbers. Numeric tokens may carry leading zeros.
func ParseNumber(s string, style Style) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("epubclean: empty %s number", style)
	}
	switch style {
	case StyleNumeric:
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return 0, fmt.Errorf("epubclean: invalid numeric number %q", s)
			}
		}
		return strconv.Atoi(s)
	case StyleWords:
		if n, ok := wordsToNumber(s); ok {
			return n, nil
		}
		return 0, fmt.Errorf("epubclean: invalid words number %q", s)
	case StyleRoman:
		if n, ok := romanToNumber(s); ok {
			return n, nil
		}
		return 0, fmt.Errorf("epubclean: invalid roman number %q", s)
	}
	return 0, configError("unknown numbering style %d", int(style))
}

// wordIndex maps a lowercase number word to its value.
var wordIndex = func() map[string]int {
	m := make(map[string]int, 30)
	for i, w := range onesWords[1:] {
		m[strings.ToLower(w)] = i + 1
	}
	for i, w := range teenWords {
		m[strings.ToLower(w)] = i + 10
	}
	for i, w := range tensWords[2:] {
		m[strings.ToLower(w)] = (i + 2) * 10
	}
	return m
}()

func wordsToNumber(s string) (int, bool) {
	parts := strings.Fields(strings.ReplaceAll(strings.ToLower(s), "-", " "))
	switch len(parts) {
	case 1:
		n, ok := wordIndex[parts[0]]
		return n, ok
	case 2:
		tens, ok1 := wordIndex[parts[0]]
		ones, ok2 := wordIndex[parts[1]]
		if !ok1 || !ok2 || tens < 20 || tens%10 != 0 || ones > 9 {
			return 0, false
		}
		return tens + ones, true
	}
	return 0, false
}

var romanValues = map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

func romanToNumber(s string) (int, bool) {
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	// Only canonical spellings count; "IIII" or "VX" are rejected.
	if total < 1 || total > maxRoman || numberToRoman(total) != s {
		return 0, false
	}
	return total, true
}

// numberToken is a number found at the start of a string.
type numberToken struct {
	text  string
	value int
	style Style
}

// scanNumber looks for a number token at the start of s, trying the styles
// in order. A token must be followed by end of text, whitespace or
// punctuation.
func scanNumber(s string, styles ...Style) (numberToken, bool) {
	for _, style := range styles {
		for _, cand := range numberCandidates(s, style) {
			if !atTokenBoundary(s[len(cand):]) {
				continue
			}
			if n, err := ParseNumber(cand, style); err == nil {
				return numberToken{text: cand, value: n, style: style}, true
			}
		}
	}
	return numberToken{}, false
}

// numberCandidates returns prefixes of s that could hold a number in style,
// longest first.
func numberCandidates(s string, style Style) []string {
	switch style {
	case StyleNumeric:
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return nil
		}
		return []string{s[:i]}
	case StyleRoman:
		i := leadingLetters(s)
		if i == 0 {
			return nil
		}
		return []string{s[:i]}
	case StyleWords:
		first := leadingLetters(s)
		if first == 0 {
			return nil
		}
		var out []string
		// A compound like "Twenty One" or "Twenty-One".
		j := first
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '-') {
			j++
		}
		if j > first {
			if second := leadingLetters(s[j:]); second > 0 {
				out = append(out, s[:j+second])
			}
		}
		return append(out, s[:first])
	}
	return nil
}

func leadingLetters(s string) int {
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	return i
}

func atTokenBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// NumberingConfig holds the heading settings of one batch run.
// It is a value type and is never mutated during a run.
type NumberingConfig struct {
	// Prefix is the text before the number, e.g. "Chapter".
	Prefix string `toml:"prefix" yaml:"prefix"`

	// Style selects the number rendering.
	Style Style `toml:"style" yaml:"style"`

	// Trailing is optional text after the number, separated by a space.
	Trailing string `toml:"trailing" yaml:"trailing"`

	// Start is the chapter number given to the first heading of the run.
	Start int `toml:"start" yaml:"start"`

	// InsertIfNotBlank inserts a new heading before a non-blank first body
	// element instead of skipping the document.
	InsertIfNotBlank bool `toml:"insert_if_not_blank" yaml:"insert_if_not_blank"`
}

// DefaultNumberingConfig returns the defaults: "Chapter", numeric, starting at 1.
func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		Prefix: "Chapter",
		Style:  StyleNumeric,
		Start:  1,
	}
}

// Heading renders the heading text for chapter n.
func (c NumberingConfig) Heading(n int) (string, error) {
	num, err := FormatNumber(n, c.Style)
	if err != nil {
		return "", err
	}
	parts := []string{c.Prefix, num}
	if c.Trailing != "" {
		parts = append(parts, c.Trailing)
	}
	return strings.Join(parts, " "), nil
}

// Validate checks the configuration. The start number is only checked when
// requireStart is set; auto-detection fills it in otherwise.
func (c NumberingConfig) Validate(requireStart bool) error {
	if strings.TrimSpace(c.Prefix) == "" {
		return configError("heading prefix must not be empty")
	}
	if !c.Style.valid() {
		return configError("unknown numbering style %d", int(c.Style))
	}
	if requireStart && c.Start < 1 {
		return configError("start number must be positive, got %d", c.Start)
	}
	return nil
}

// stylesFor lists the configured style first, then the others.
func (c NumberingConfig) stylesFor() []Style {
	out := []Style{c.Style}
	for _, s := range []Style{StyleNumeric, StyleRoman, StyleWords} {
		if s != c.Style {
			out = append(out, s)
		}
	}
	return out
}
