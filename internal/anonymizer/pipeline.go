package anonymizer

import "strings"

// Stage is one ordered detection pass
type Stage struct {
	Name string
	// Class gates the stage; an empty class means the stage always runs
	Class    Class
	Type     EntityType
	Matchers []*Matcher
	// Keep filters matches after the matcher accepted them; nil keeps all
	Keep func(Match) bool
}

// Enabled reports whether the stage runs under cfg
func (s Stage) Enabled(cfg Config) bool {
	return s.Class == "" || cfg.Enabled(s.Class)
}

// buildStages returns the detection order. Earlier stages remove structured
// values so later ones do not misread them; names always run last.
func buildStages(r *Registry, names *NameClassifier) []Stage {
	return []Stage{
		{Name: "email", Class: ClassEmails, Type: TypeEmail, Matchers: []*Matcher{r.Matcher(MatchEmail)}},
		{Name: "url", Type: TypeURL, Matchers: []*Matcher{r.Matcher(MatchURL)}},
		{Name: "card", Class: ClassCards, Type: TypeCard, Matchers: []*Matcher{
			r.Matcher(MatchCardNumber),
			r.Matcher(MatchCVV),
			r.Matcher(MatchCardExpiry),
		}},
		{Name: "national_id", Class: ClassIDs, Type: TypeID, Matchers: []*Matcher{r.Matcher(MatchNationalID)}},
		{Name: "phone", Class: ClassPhones, Type: TypePhone, Matchers: []*Matcher{r.Matcher(MatchPhone)}},
		{Name: "address", Class: ClassAddresses, Type: TypeAddress, Matchers: []*Matcher{r.Matcher(MatchAddress)}},
		{Name: "company", Class: ClassCompanies, Type: TypeCompany, Matchers: []*Matcher{r.Matcher(MatchCompany)}},
		{Name: "location", Class: ClassLocations, Type: TypeLocation, Matchers: []*Matcher{r.Matcher(MatchLocation)}},
		{Name: "name", Class: ClassNames, Type: TypePerson, Matchers: []*Matcher{r.Matcher(MatchNameRun)},
			Keep: func(m Match) bool { return names.Classify(m.Value).IsPerson() }},
	}
}

// session carries the state of a single Anonymize call
type session struct {
	text string
	// origin maps every byte of text to the span of the input it came from
	origin []Span
	store  *Store
}

func newSession(text string) *session {
	origin := make([]Span, len(text))
	for i := range origin {
		origin[i] = Span{Start: i, End: i + 1}
	}
	return &session{text: text, origin: origin, store: NewStore()}
}

// apply runs one stage over the current text and returns how many
// occurrences were replaced.
func (s *session) apply(stage Stage) int {
	replaced := 0
	for _, matcher := range stage.Matchers {
		var b strings.Builder
		origin := make([]Span, 0, len(s.origin))
		last, n := 0, 0

		for m := range matcher.All(s.text) {
			if m.End <= m.Start {
				continue
			}
			if stage.Keep != nil && !stage.Keep(m) {
				continue
			}

			b.WriteString(s.text[last:m.Start])
			origin = append(origin, s.origin[last:m.Start]...)

			pos := Span{Start: s.origin[m.Start].Start, End: s.origin[m.End-1].End}
			token := s.store.GetOrCreate(stage.Type, m.Value, &pos)
			b.WriteString(token)
			for range len(token) {
				origin = append(origin, pos)
			}

			last = m.End
			n++
		}

		if n == 0 {
			continue
		}

		b.WriteString(s.text[last:])
		origin = append(origin, s.origin[last:]...)
		s.text = b.String()
		s.origin = origin
		replaced += n
	}
	return replaced
}
