package anonymizer

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatcherName identifies a matcher in the registry
type MatcherName string

const (
	MatchEmail      MatcherName = "email"
	MatchURL        MatcherName = "url"
	MatchCardNumber MatcherName = "card_number"
	MatchCVV        MatcherName = "card_cvv"
	MatchCardExpiry MatcherName = "card_expiry"
	MatchNationalID MatcherName = "national_id"
	MatchPhone      MatcherName = "phone"
	MatchAddress    MatcherName = "address"
	MatchCompany    MatcherName = "company"
	MatchLocation   MatcherName = "location"
	MatchNameRun    MatcherName = "name_run"
)

// Match is one accepted occurrence produced by a Matcher
type Match struct {
	Value string
	Start int
	End   int
}

// Matcher finds occurrences of one entity class. A Matcher is immutable once
// built and safe for concurrent use.
type Matcher struct {
	name MatcherName
	re   *regexp.Regexp
	// group selects the submatch to tokenize; 0 means the whole match
	group int
	// bounded requires the match not to touch a letter or digit on either side,
	// which Go's ASCII-only \b cannot express for accented text
	bounded bool
	accept  func(string) bool
}

// Name returns the registry name of the matcher
func (m *Matcher) Name() MatcherName {
	return m.name
}

// All yields accepted matches in text from left to right. The sequence is
// finite and can be ranged over any number of times.
func (m *Matcher) All(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*m.group], loc[2*m.group+1]
			if start < 0 {
				continue
			}
			if m.bounded && !isBounded(text, start, end) {
				continue
			}
			value := text[start:end]
			if m.accept != nil && !m.accept(value) {
				continue
			}
			if !yield(Match{Value: value, Start: start, End: end}) {
				return
			}
		}
	}
}

// Find collects All into a slice
func (m *Matcher) Find(text string) []Match {
	var out []Match
	for match := range m.All(text) {
		out = append(out, match)
	}
	return out
}

// Registry holds the compiled matchers and lexicons shared by all requests
type Registry struct {
	matchers   map[MatcherName]*Matcher
	firstNames lexicon
	exclusions lexicon
}

// RegistryOption customizes a Registry at construction time
type RegistryOption func(*registryConfig)

type registryConfig struct {
	extraFirstNames []string
	extraExclusions []string
}

// WithFirstNames adds names to the known-first-name lexicon
func WithFirstNames(names []string) RegistryOption {
	return func(c *registryConfig) { c.extraFirstNames = append(c.extraFirstNames, names...) }
}

// WithExclusions adds words to the exclusion lexicon
func WithExclusions(words []string) RegistryOption {
	return func(c *registryConfig) { c.extraExclusions = append(c.extraExclusions, words...) }
}

var defaultRegistry = MustNewRegistry()

// DefaultRegistry returns the process-wide registry built from the embedded
// lexicons.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry compiles every matcher and builds the lexicons
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	var cfg registryConfig
	for _, o := range opts {
		o(&cfg)
	}

	r := &Registry{
		matchers:   make(map[MatcherName]*Matcher),
		firstNames: newLexicon(firstNames, cfg.extraFirstNames),
		exclusions: newLexicon(geographicWords, functionalWords, cfg.extraExclusions),
	}

	specs := []struct {
		name    MatcherName
		expr    string
		group   int
		bounded bool
		accept  func(string) bool
	}{
		{name: MatchEmail, expr: `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`},
		{name: MatchURL, expr: `(?i)(?:https?://|www\.)[^\s<>"']*[^\s<>"'.,;:!?)\]]`},
		{name: MatchCardNumber, expr: `\b(?:\d{4}[ \-]?){3}\d{1,7}\b`, accept: isCardNumber},
		{name: MatchCVV, expr: `(?i)\b(?:cvv2?|cvc|c[oó]digo de seguridad|security code)\s*[:#]?\s*(\d{3,4})\b`, group: 1},
		{name: MatchCardExpiry, expr: `(?i)\b(?:vence|vencimiento|expira|expiraci[oó]n|expiry|expires|exp)\.?\s*[:#]?\s*(\d{2}\s?/\s?\d{2,4})\b`, group: 1},
		{name: MatchNationalID, expr: `\b\d{4}[ \-]?\d{4}[ \-]?\d{5}\b`},
		{name: MatchPhone, expr: phonePattern, accept: hasPhoneDigits},
		{name: MatchAddress, expr: addressPattern},
		{name: MatchCompany, expr: companyPattern, bounded: true},
		{name: MatchLocation, expr: phraseAlternation(locationPhrases), bounded: true},
		{name: MatchNameRun, expr: `\p{Lu}\p{Ll}+(?:[ \t]+\p{Lu}\p{Ll}+){0,2}`, bounded: true},
	}

	for _, s := range specs {
		re, err := regexp.Compile(s.expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s pattern: %w", s.name, err)
		}
		r.matchers[s.name] = &Matcher{
			name:    s.name,
			re:      re,
			group:   s.group,
			bounded: s.bounded,
			accept:  s.accept,
		}
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error
func MustNewRegistry(opts ...RegistryOption) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(fmt.Sprintf("anonymizer.NewRegistry: %v", err))
	}
	return r
}

// Matcher returns the named matcher, or nil when the name is unknown
func (r *Registry) Matcher(name MatcherName) *Matcher {
	return r.matchers[name]
}

// IsFirstName reports whether a lowercase word is a known first name
func (r *Registry) IsFirstName(word string) bool {
	return r.firstNames.contains(word)
}

// IsExcluded reports whether a lowercase word is in the exclusion lexicon
func (r *Registry) IsExcluded(word string) bool {
	return r.exclusions.contains(word)
}

const (
	// Honduran numbers: optional +504 prefix, then 4-4 local grouping
	regionalPhone = `(?:\+?504[ \-]?)?\b[2-9]\d{3}[ \-]?\d{4}\b`
	// generic international numbers with a mandatory country code
	internationalPhone = `\+\d{1,3}[ \-.]?\(?\d{1,4}\)?(?:[ \-.]?\d{2,4}){2,4}\b`
	phonePattern       = regionalPhone + `|` + internationalPhone

	addressPattern = `(?i)\b(?:calle|avenida|av\.|ave\.|bulevar|boulevard|blvd\.|colonia|col\.|barrio|residencial|res\.|pasaje|sector|aldea|street|avenue)\s+` +
		`[\p{L}\d .,'\-]{1,60}?` +
		`(?:(?:casa|no\.?|n[uú]m(?:ero)?\.?|#)\s*\d+[a-z]?\b|\d+[a-z]?\b|s/n\b|sin n[uú]mero)`

	companyPattern = `(?:\p{Lu}[\p{L}&\-]*[ \t]+){1,4}(?:S\.\s?A\.(?:\s?de\s?C\.\s?V\.)?|S\.\s?de\s?R\.\s?L\.|Ltda\.|Inc\.|Corp\.|LLC)`

	minPhoneDigits = 8
)

// isCardNumber accepts matches that are digits once separators are removed
// and that are not laid out like a national ID (4-4-5 with separators).
func isCardNumber(s string) bool {
	stripped := strings.NewReplacer(" ", "", "-", "").Replace(s)
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return !nationalIDLayout.MatchString(s)
}

var nationalIDLayout = regexp.MustCompile(`^\d{4}[ \-]\d{4}[ \-]\d{5}$`)

// hasPhoneDigits rejects short numeric runs such as partial dates
func hasPhoneDigits(s string) bool {
	return countDigits(s) >= minPhoneDigits
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// isBounded checks that text[start:end] is not glued to a letter or digit
func isBounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// phraseAlternation builds a case-insensitive alternation that also accepts
// the accented spelling of each folded phrase.
func phraseAlternation(phrases []string) string {
	accents := map[rune]string{
		'a': "[aá]", 'e': "[eé]", 'i': "[ií]", 'o': "[oó]", 'u': "[uúü]", 'n': "[nñ]",
	}
	parts := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		var b strings.Builder
		for i, word := range strings.Fields(phrase) {
			if i > 0 {
				b.WriteString(`\s+`)
			}
			for _, r := range word {
				if class, ok := accents[r]; ok {
					b.WriteString(class)
				} else {
					b.WriteString(regexp.QuoteMeta(string(r)))
				}
			}
		}
		parts = append(parts, b.String())
	}
	return `(?i)(?:` + strings.Join(parts, "|") + `)`
}
