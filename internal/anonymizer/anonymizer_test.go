package anonymizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnonymizer() *Anonymizer {
	return New(nil, nil)
}

func allDisabled() Config {
	cfg := Config{}
	for _, c := range Classes() {
		cfg[c] = false
	}
	return cfg
}

func TestAnonymizeScenarios(t *testing.T) {
	a := newTestAnonymizer()

	t.Run("name email and phone", func(t *testing.T) {
		input := "Hola, soy Juan Pérez, mi correo es juan.perez@example.com y mi teléfono es 9987-6543."

		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)

		assert.Equal(t, "Hola, soy [PERSONA_1], mi correo es [EMAIL_1] y mi teléfono es [TELEFONO_1].", result.AnonymizedText)
		assert.Equal(t, 3, result.Stats.EntitiesFound)
		assert.Equal(t, map[EntityType]int{TypePerson: 1, TypeEmail: 1, TypePhone: 1}, result.Stats.EntityBreakdown)

		for _, m := range result.Mappings {
			require.NotNil(t, m.Position, m.Token)
			assert.Equal(t, m.Original, input[m.Position.Start:m.Position.End], m.Token)
		}
	})

	t.Run("geographic names stay", func(t *testing.T) {
		input := "Vivo en San Pedro Sula, Honduras."

		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)

		assert.Equal(t, input, result.AnonymizedText)
		assert.Equal(t, 0, result.Stats.EntitiesFound)
		assert.Empty(t, result.Mappings)
	})

	t.Run("url is always replaced", func(t *testing.T) {
		input := "Visita https://example.com/path?x=1 para más info."

		for _, cfg := range []Config{nil, {ClassNames: false, ClassEmails: false}, allDisabled()} {
			result, err := a.Anonymize(input, cfg)
			require.NoError(t, err)
			assert.Equal(t, "Visita [URL_1] para más info.", result.AnonymizedText)
			assert.Equal(t, 1, result.Stats.EntityBreakdown[TypeURL])
		}
	})

	t.Run("repeated email", func(t *testing.T) {
		input := "Escriba a ana@example.com o a ANA@Example.com hoy."

		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)

		assert.Equal(t, "Escriba a [EMAIL_1] o a [EMAIL_1] hoy.", result.AnonymizedText)
		require.Len(t, result.Mappings, 1)
		assert.Equal(t, "ana@example.com", result.Mappings[0].Original)
		assert.Equal(t, TypeEmail, result.Mappings[0].Type)
	})

	t.Run("card cvv and expiry", func(t *testing.T) {
		input := "Pago con 4111 1111 1111 1111, CVV: 123, vence 12/27."

		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)

		assert.Equal(t, "Pago con [TARJETA_1], CVV: [TARJETA_2], vence [TARJETA_3].", result.AnonymizedText)
		assert.Equal(t, 3, result.Stats.EntityBreakdown[TypeCard])
	})

	t.Run("national id is not taken by the card pass", func(t *testing.T) {
		result, err := a.Anonymize("Mi DNI es 0801-1990-12345 y ya.", nil)
		require.NoError(t, err)
		assert.Equal(t, "Mi DNI es [ID_1] y ya.", result.AnonymizedText)
	})

	t.Run("address", func(t *testing.T) {
		result, err := a.Anonymize("Entregar en Colonia Kennedy, casa 25, por la tarde.", nil)
		require.NoError(t, err)
		assert.Equal(t, "Entregar en [DIRECCION_1], por la tarde.", result.AnonymizedText)
	})

	t.Run("multi-word unknown name", func(t *testing.T) {
		result, err := a.Anonymize("Ayer llegó Kevin Smith al evento.", nil)
		require.NoError(t, err)
		assert.Equal(t, "Ayer llegó [PERSONA_1] al evento.", result.AnonymizedText)
	})

	t.Run("single unknown capitalized word", func(t *testing.T) {
		input := "Ayer compré Zapatos nuevos para la fiesta."
		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)
		assert.Equal(t, input, result.AnonymizedText)
	})

	t.Run("companies and locations when enabled", func(t *testing.T) {
		cfg := Config{ClassCompanies: true, ClassLocations: true}

		result, err := a.Anonymize("Trabajo en Inversiones Atlántida S.A. desde 2019.", cfg)
		require.NoError(t, err)
		assert.Equal(t, "Trabajo en [EMPRESA_1] desde 2019.", result.AnonymizedText)

		result, err = a.Anonymize("Vivo en San Pedro Sula, Honduras.", cfg)
		require.NoError(t, err)
		assert.Equal(t, "Vivo en [UBICACION_1], [UBICACION_2].", result.AnonymizedText)
	})

	t.Run("companies are off by default", func(t *testing.T) {
		input := "Trabajo en Inversiones Atlántida S.A. desde 2019."
		result, err := a.Anonymize(input, nil)
		require.NoError(t, err)
		assert.Equal(t, input, result.AnonymizedText)
	})
}

func TestAnonymizeValidation(t *testing.T) {
	a := newTestAnonymizer()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", true},
		{"short", "short", true},
		{"nine characters", "123456789", true},
		{"nine characters after trim", "   abcdefghi \n", true},
		{"ten characters", "1234567890", false},
		{"ten multibyte characters", "áéíóúáéíóú", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Anonymize(tt.input, nil)
			require.NotNil(t, result)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.input, result.AnonymizedText)
			assert.NotNil(t, result.Mappings)
			assert.Empty(t, result.Mappings)
			assert.Equal(t, 0, result.Stats.EntitiesFound)
		})
	}
}

func TestAnonymizeInternalError(t *testing.T) {
	a := newTestAnonymizer()
	a.stages = []Stage{{
		Name:     "boom",
		Type:     TypeEmail,
		Matchers: []*Matcher{DefaultRegistry().Matcher(MatchEmail)},
		Keep:     func(Match) bool { panic("matcher fault") },
	}}

	result, err := a.Anonymize("correo: ana@example.com", nil)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), "matcher fault")
}

func TestAnonymizeDeterminism(t *testing.T) {
	a := newTestAnonymizer()
	input := "Juan Pérez (juan@example.com, 9987-6543) y María López (maria@example.com) viven en Calle Los Pinos 23."

	first, err := a.Anonymize(input, nil)
	require.NoError(t, err)
	second, err := a.Anonymize(input, nil)
	require.NoError(t, err)

	assert.Equal(t, first.AnonymizedText, second.AnonymizedText)
	assert.Equal(t, first.Mappings, second.Mappings)
	assert.Equal(t, first.Stats.EntityBreakdown, second.Stats.EntityBreakdown)
}

func TestAnonymizeTokenSequence(t *testing.T) {
	a := newTestAnonymizer()
	input := "Copias: a@example.com, b@example.com, A@example.com, c@example.com."

	result, err := a.Anonymize(input, nil)
	require.NoError(t, err)

	assert.Equal(t, "Copias: [EMAIL_1], [EMAIL_2], [EMAIL_1], [EMAIL_3].", result.AnonymizedText)

	tokens := make([]string, 0, len(result.Mappings))
	for _, m := range result.Mappings {
		tokens = append(tokens, m.Token)
	}
	assert.Equal(t, []string{"[EMAIL_1]", "[EMAIL_2]", "[EMAIL_3]"}, tokens)
}

func TestAnonymizeNameConsistency(t *testing.T) {
	a := newTestAnonymizer()

	result, err := a.Anonymize("Juan Pérez llamó y luego Juan Pérez colgó.", nil)
	require.NoError(t, err)

	assert.Equal(t, "[PERSONA_1] llamó y luego [PERSONA_1] colgó.", result.AnonymizedText)
	assert.Len(t, result.Mappings, 1)
}

func TestAnonymizeExclusionPrecedence(t *testing.T) {
	a := newTestAnonymizer()
	input := "Nos vemos en San Juan mañana temprano."

	result, err := a.Anonymize(input, nil)
	require.NoError(t, err)

	assert.Equal(t, input, result.AnonymizedText)
	assert.NotContains(t, result.AnonymizedText, string(TypePerson))
}

func TestAnonymizeConfigGating(t *testing.T) {
	a := newTestAnonymizer()

	tests := []struct {
		name     string
		input    string
		cfg      Config
		verbatim string
		kind     EntityType
	}{
		{"names", "Hola, soy Juan Pérez y llegué hoy.", Config{ClassNames: false}, "Juan Pérez", TypePerson},
		{"emails", "Mi correo es ana@example.com gracias.", Config{ClassEmails: false}, "ana@example.com", TypeEmail},
		{"phones", "Mi teléfono es 9987-6543 gracias.", Config{ClassPhones: false}, "9987-6543", TypePhone},
		{"ids", "Mi DNI es 0801-1990-12345 gracias.", Config{ClassIDs: false}, "0801-1990-12345", TypeID},
		// phone digits overlap card digits, so both classes are disabled
		{"cards", "Tarjeta 4111 1111 1111 1111 gracias.", Config{ClassCards: false, ClassPhones: false}, "4111 1111 1111 1111", TypeCard},
		{"addresses", "Entregar en Colonia Kennedy, casa 25, gracias.", Config{ClassAddresses: false}, "casa 25", TypeAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Anonymize(tt.input, tt.cfg)
			require.NoError(t, err)

			assert.Contains(t, result.AnonymizedText, tt.verbatim)
			assert.NotContains(t, result.AnonymizedText, "["+string(tt.kind)+"_")
			assert.Zero(t, result.Stats.EntityBreakdown[tt.kind])
		})
	}
}

func TestAnonymizePositionsAfterEarlierReplacements(t *testing.T) {
	a := newTestAnonymizer()
	input := "Correo ana@example.com de parte de Kevin Smith, tel 9987-6543."

	result, err := a.Anonymize(input, nil)
	require.NoError(t, err)
	require.Len(t, result.Mappings, 3)

	for _, m := range result.Mappings {
		require.NotNil(t, m.Position)
		assert.Equal(t, m.Original, input[m.Position.Start:m.Position.End])
	}
}

func TestStagesOrder(t *testing.T) {
	a := newTestAnonymizer()

	var names []string
	for _, s := range a.Stages() {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{
		"email", "url", "card", "national_id", "phone", "address", "company", "location", "name",
	}, names)

	stages := a.Stages()
	assert.Equal(t, Class(""), stages[1].Class, "url stage is never gated")
	assert.True(t, stages[1].Enabled(allDisabled()))
	assert.False(t, stages[0].Enabled(allDisabled()))
}

func TestAnonymizeConcurrent(t *testing.T) {
	a := newTestAnonymizer()

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("Usuario %d: Juan Pérez, juan%d@example.com, 9987-6543", i, i)
			res, err := a.Anonymize(input, nil)
			if err == nil {
				results[i] = res.AnonymizedText
			}
		}(i)
	}
	wg.Wait()

	for i, text := range results {
		assert.Equal(t, fmt.Sprintf("Usuario %d: [PERSONA_1], [EMAIL_1], [TELEFONO_1]", i), text)
	}
}

func TestRestore(t *testing.T) {
	a := newTestAnonymizer()
	input := "Hola, soy Juan Pérez, mi correo es juan.perez@example.com y mi teléfono es 9987-6543."

	result, err := a.Anonymize(input, nil)
	require.NoError(t, err)

	assert.Equal(t, input, Restore(result.AnonymizedText, result.Mappings))
	assert.Equal(t, "sin cambios", Restore("sin cambios", nil))

	reply := "Gracias [PERSONA_1], te escribimos a [EMAIL_1]."
	assert.Equal(t, "Gracias Juan Pérez, te escribimos a juan.perez@example.com.", Restore(reply, result.Mappings))
	assert.False(t, strings.Contains(Restore(reply, result.Mappings), "["))
}

func TestRestoreIgnoresEmptyTokens(t *testing.T) {
	mappings := []EntityMapping{
		{Original: "X", Token: ""},
		{Original: "ana@example.com", Token: "[EMAIL_1]", Type: TypeEmail},
	}

	assert.Equal(t, "hola ana@example.com", Restore("hola [EMAIL_1]", mappings))
	assert.Equal(t, "sin tokens", Restore("sin tokens", mappings[:1]))
}

func TestNameRunsStopAtLineBreaks(t *testing.T) {
	a := newTestAnonymizer()

	result, err := a.Anonymize("Saludos cordiales,\nGracias\nJuan Pérez llamó hoy.", nil)
	require.NoError(t, err)

	assert.Equal(t, "Saludos cordiales,\nGracias\n[PERSONA_1] llamó hoy.", result.AnonymizedText)
	require.Len(t, result.Mappings, 1)
	assert.Equal(t, "Juan Pérez", result.Mappings[0].Original)
}
