package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	for _, class := range []Class{ClassNames, ClassEmails, ClassPhones, ClassIDs, ClassCards, ClassAddresses} {
		assert.True(t, cfg.Enabled(class), "%s should default to enabled", class)
	}
	assert.False(t, cfg.Enabled(ClassCompanies))
	assert.False(t, cfg.Enabled(ClassLocations))

	cfg = Config{ClassEmails: false, ClassLocations: true}
	assert.False(t, cfg.Enabled(ClassEmails))
	assert.True(t, cfg.Enabled(ClassLocations))
	assert.True(t, cfg.Enabled(ClassNames))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{ClassNames: false}.Validate())
	assert.NoError(t, Config(nil).Validate())

	err := Config{"names": true, "passwords": true, "iban": false}.Validate()
	assert.EqualError(t, err, "unknown entity classes: iban, passwords")
}

func TestMerge(t *testing.T) {
	base := Config{ClassNames: false, ClassEmails: false}
	override := Config{ClassEmails: true}

	merged := Merge(base, override)

	assert.Equal(t, Config{ClassNames: false, ClassEmails: true}, merged)
	assert.Equal(t, Config{ClassNames: false, ClassEmails: false}, base)
}

func TestConfigFromMap(t *testing.T) {
	assert.Nil(t, ConfigFromMap(nil))
	assert.Equal(t, Config{ClassNames: false, ClassCompanies: true},
		ConfigFromMap(map[string]bool{"Names": false, " companies ": true}))
}

func TestClasses(t *testing.T) {
	assert.Equal(t, []Class{
		ClassAddresses, ClassCards, ClassCompanies, ClassEmails,
		ClassIDs, ClassLocations, ClassNames, ClassPhones,
	}, Classes())
}
