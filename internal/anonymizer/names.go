package anonymizer

import "strings"

// NameDecision is the branch the name classifier took for a candidate run
type NameDecision int

const (
	// DecisionExcluded: a word is in the exclusion lexicon. Wins over every
	// other rule.
	DecisionExcluded NameDecision = iota
	// DecisionKnownName: a word is a known first name
	DecisionKnownName
	// DecisionMultiWord: two or three capitalized words without lexicon hits
	DecisionMultiWord
	// DecisionRejected: a single unknown capitalized word
	DecisionRejected
)

var decisionNames = [...]string{
	DecisionExcluded:  "excluded",
	DecisionKnownName: "known_name",
	DecisionMultiWord: "multi_word",
	DecisionRejected:  "rejected",
}

func (d NameDecision) String() string {
	if int(d) >= 0 && int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return "unknown"
}

// IsPerson reports whether the run should be anonymized as PERSONA
func (d NameDecision) IsPerson() bool {
	return d == DecisionKnownName || d == DecisionMultiWord
}

// NameClassifier decides whether a run of capitalized words is a person name
type NameClassifier struct {
	registry *Registry
}

// NewNameClassifier creates a classifier backed by the registry lexicons
func NewNameClassifier(registry *Registry) *NameClassifier {
	return &NameClassifier{registry: registry}
}

// Classify runs the decision table over one candidate run
func (c *NameClassifier) Classify(run string) NameDecision {
	words := strings.Fields(strings.ToLower(run))

	for _, w := range words {
		if c.registry.IsExcluded(w) {
			return DecisionExcluded
		}
	}

	for _, w := range words {
		if c.registry.IsFirstName(w) {
			return DecisionKnownName
		}
	}

	if len(words) == 2 || len(words) == 3 {
		return DecisionMultiWord
	}

	return DecisionRejected
}
