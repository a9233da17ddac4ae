// Package anonymizer detects personally identifiable information in free text
// and replaces every occurrence with a typed placeholder such as [EMAIL_1].
//
// Detection is an ordered list of stages (email, URL, card, national ID,
// phone, address, company, location, name). Each stage works on the text
// already redacted by the previous ones. Repeated values of the same type map
// to the same token within one call; nothing is shared between calls except
// the read-only Registry.
package anonymizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

// MinTextLength is the minimum number of characters after trimming
const MinTextLength = 10

var (
	// ErrValidation marks input that was rejected before processing
	ErrValidation = errors.New("validation failed")
	// ErrInternal marks a fault while applying patterns
	ErrInternal = errors.New("anonymization failed")
)

// Anonymizer runs the detection stages. It holds no per-request state and is
// safe for concurrent use.
type Anonymizer struct {
	registry *Registry
	names    *NameClassifier
	stages   []Stage
	logger   *logger.Logger
}

// New creates an Anonymizer over registry. A nil registry selects
// DefaultRegistry.
func New(registry *Registry, log *logger.Logger) *Anonymizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if log == nil {
		log = logger.NewNop()
	}

	names := NewNameClassifier(registry)
	a := &Anonymizer{
		registry: registry,
		names:    names,
		stages:   buildStages(registry, names),
		logger:   log,
	}

	log.Info("Anonymizer initialized", zap.Int("stages", len(a.stages)))

	return a
}

// Stages returns the detection stages in execution order
func (a *Anonymizer) Stages() []Stage {
	out := make([]Stage, len(a.stages))
	copy(out, a.stages)
	return out
}

// Names returns the classifier used by the name stage
func (a *Anonymizer) Names() *NameClassifier {
	return a.names
}

// ValidateText checks the input preconditions
func ValidateText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: text is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < MinTextLength {
		return fmt.Errorf("%w: text must be at least %d characters, got %d", ErrValidation, MinTextLength, n)
	}
	return nil
}

// Anonymize replaces every enabled entity class in text with tokens.
//
// On a validation error the returned Result echoes text with no mappings.
// On an internal error the Result is nil.
func (a *Anonymizer) Anonymize(text string, cfg Config) (result *Result, err error) {
	if err := ValidateText(text); err != nil {
		return emptyResult(text), err
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Anonymization panicked", zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	start := time.Now()
	sess := newSession(text)

	for _, stage := range a.stages {
		if !stage.Enabled(cfg) {
			a.logger.Debug("Stage skipped", zap.String("stage", stage.Name))
			continue
		}

		if n := sess.apply(stage); n > 0 {
			a.logger.Debug("Entities replaced",
				zap.String("stage", stage.Name),
				zap.String("type", string(stage.Type)),
				zap.Int("occurrences", n),
			)
		}
	}

	return aggregate(sess, time.Since(start)), nil
}

// aggregate builds the Result from a finished session
func aggregate(sess *session, elapsed time.Duration) *Result {
	return &Result{
		AnonymizedText: sess.text,
		Mappings:       sess.store.Mappings(),
		Stats: Stats{
			EntitiesFound:    sess.store.Len(),
			ProcessingTimeMS: float64(elapsed.Nanoseconds()) / 1e6,
			EntityBreakdown:  sess.store.CountByType(),
		},
	}
}

// Restore puts the original values back in place of the tokens from mappings.
// Mappings with an empty token are ignored.
func Restore(text string, mappings []EntityMapping) string {
	pairs := make([]string, 0, len(mappings)*2)
	for _, m := range mappings {
		if m.Token == "" {
			continue
		}
		pairs = append(pairs, m.Token, m.Original)
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
