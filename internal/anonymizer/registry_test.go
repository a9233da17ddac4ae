package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Value)
	}
	return out
}

func TestRegistryMatchers(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		matcher MatcherName
		text    string
		want    []string
	}{
		{"email", MatchEmail, "escribe a juan.perez@example.com hoy", []string{"juan.perez@example.com"}},
		{"url with query", MatchURL, "Visita https://example.com/path?x=1 para más info.", []string{"https://example.com/path?x=1"}},
		{"www url drops trailing period", MatchURL, "Ver www.example.org.", []string{"www.example.org"}},
		{"card with spaces", MatchCardNumber, "tarjeta 4111 1111 1111 1111 ok", []string{"4111 1111 1111 1111"}},
		{"card without separators", MatchCardNumber, "tarjeta 4111111111111111 ok", []string{"4111111111111111"}},
		{"card rejects national id layout", MatchCardNumber, "DNI 0801-1990-12345", nil},
		{"national id", MatchNationalID, "DNI 0801-1990-12345", []string{"0801-1990-12345"}},
		{"national id without separators", MatchNationalID, "DNI 0801199012345.", []string{"0801199012345"}},
		{"regional phone", MatchPhone, "llame al 9987-6543", []string{"9987-6543"}},
		{"regional phone with prefix", MatchPhone, "llame al +504 9987-6543", []string{"+504 9987-6543"}},
		{"international phone", MatchPhone, "call +1 555 123 4567 now", []string{"+1 555 123 4567"}},
		{"short numbers are not phones", MatchPhone, "el 12-05 a las 3", nil},
		{"cvv digits only", MatchCVV, "CVV: 123", []string{"123"}},
		{"security code in spanish", MatchCVV, "código de seguridad 9876", []string{"9876"}},
		{"bare digits are not cvv", MatchCVV, "tengo 123 gatos", nil},
		{"expiry", MatchCardExpiry, "vence 12/27", []string{"12/27"}},
		{"address with house number", MatchAddress, "Entregar en Colonia Kennedy, casa 25, por la tarde.", []string{"Colonia Kennedy, casa 25"}},
		{"address ending in number", MatchAddress, "vivo en Calle Los Pinos 23 desde hace años", []string{"Calle Los Pinos 23"}},
		{"address without number", MatchAddress, "en Barrio El Centro, sin número", []string{"Barrio El Centro, sin número"}},
		{"company", MatchCompany, "Trabajo en Inversiones Atlántida S.A. desde 2019", []string{"Inversiones Atlántida S.A."}},
		{"location with accents", MatchLocation, "de San Pedro Sula a Panamá", []string{"San Pedro Sula", "Panamá"}},
		{"name runs", MatchNameRun, "Hola, soy Juan Pérez, de Tegucigalpa", []string{"Hola", "Juan Pérez", "Tegucigalpa"}},
		{"name run glued to letters", MatchNameRun, "xJuan", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := reg.Matcher(tt.matcher)
			require.NotNil(t, m)
			got := values(m.Find(tt.text))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcherSpans(t *testing.T) {
	text := "CVV: 123"
	matches := DefaultRegistry().Matcher(MatchCVV).Find(text)
	require.Len(t, matches, 1)
	assert.Equal(t, "123", text[matches[0].Start:matches[0].End])
}

func TestMatcherAllIsRestartable(t *testing.T) {
	m := DefaultRegistry().Matcher(MatchEmail)
	text := "a@example.com y b@example.com"

	first := values(m.Find(text))
	second := values(m.Find(text))
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)

	// stopping early must not break later iterations
	for range m.All(text) {
		break
	}
	assert.Equal(t, first, values(m.Find(text)))
}

func TestPhoneDigitThreshold(t *testing.T) {
	assert.True(t, hasPhoneDigits("9987-6543"))
	assert.False(t, hasPhoneDigits("998-6543"))
	assert.False(t, hasPhoneDigits("+1 555"))
}

func TestIsCardNumber(t *testing.T) {
	assert.True(t, isCardNumber("4111-1111-1111-1111"))
	assert.True(t, isCardNumber("4111111111111"))
	assert.False(t, isCardNumber("4111-1111-1111-11a1"))
	assert.False(t, isCardNumber("0801 1990 12345"))
}

func TestLexicons(t *testing.T) {
	reg := DefaultRegistry()

	assert.True(t, reg.IsFirstName("juan"))
	assert.True(t, reg.IsFirstName("josé"))
	assert.True(t, reg.IsFirstName("jose"))
	assert.False(t, reg.IsFirstName("zapato"))

	assert.True(t, reg.IsExcluded("honduras"))
	assert.True(t, reg.IsExcluded("san"))
	assert.True(t, reg.IsExcluded("panamá"))
	assert.False(t, reg.IsExcluded("pérez"))
}

func TestRegistryOptions(t *testing.T) {
	reg, err := NewRegistry(
		WithFirstNames([]string{"Xiomara"}),
		WithExclusions([]string{"Acme"}),
	)
	require.NoError(t, err)

	assert.True(t, reg.IsFirstName("xiomara"))
	assert.True(t, reg.IsExcluded("acme"))
	assert.False(t, DefaultRegistry().IsFirstName("xiomara"))
}
