package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameClassifier(t *testing.T) {
	c := NewNameClassifier(DefaultRegistry())

	tests := []struct {
		run  string
		want NameDecision
	}{
		{"Juan Pérez", DecisionKnownName},
		{"Pedro", DecisionKnownName},
		{"José", DecisionKnownName},
		{"San Pedro Sula", DecisionExcluded},
		{"Honduras", DecisionExcluded},
		{"Banco Juan", DecisionExcluded},
		{"Kevin Smith", DecisionMultiWord},
		{"Xiomara Castro Sarmiento", DecisionMultiWord},
		{"Zapato", DecisionRejected},
		{"Uno Dos Tres Cuatro", DecisionRejected},
	}

	for _, tt := range tests {
		t.Run(tt.run, func(t *testing.T) {
			got := c.Classify(tt.run)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestNameDecisionIsPerson(t *testing.T) {
	assert.False(t, DecisionExcluded.IsPerson())
	assert.True(t, DecisionKnownName.IsPerson())
	assert.True(t, DecisionMultiWord.IsPerson())
	assert.False(t, DecisionRejected.IsPerson())
	assert.Equal(t, "known_name", DecisionKnownName.String())
	assert.Equal(t, "unknown", NameDecision(42).String())
}
