package anonymizer

import (
	"fmt"
	"sort"
	"strings"
)

// Class is the name of a configurable entity class
type Class string

const (
	ClassNames     Class = "names"
	ClassEmails    Class = "emails"
	ClassPhones    Class = "phones"
	ClassIDs       Class = "ids"
	ClassCards     Class = "cards"
	ClassAddresses Class = "addresses"
	ClassCompanies Class = "companies"
	ClassLocations Class = "locations"
)

// classDefaults holds the value used when a class is absent from a Config.
var classDefaults = map[Class]bool{
	ClassNames:     true,
	ClassEmails:    true,
	ClassPhones:    true,
	ClassIDs:       true,
	ClassCards:     true,
	ClassAddresses: true,
	ClassCompanies: false,
	ClassLocations: false,
}

// Classes returns every known class in a stable order
func Classes() []Class {
	classes := make([]Class, 0, len(classDefaults))
	for c := range classDefaults {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}

// Config maps entity classes to enable flags. A nil or partial Config is
// valid: missing classes fall back to their defaults.
type Config map[Class]bool

// Enabled reports whether the class should be anonymized
func (c Config) Enabled(class Class) bool {
	if v, ok := c[class]; ok {
		return v
	}
	return classDefaults[class]
}

// Validate rejects class names the pipeline does not know about
func (c Config) Validate() error {
	var unknown []string
	for class := range c {
		if _, ok := classDefaults[class]; !ok {
			unknown = append(unknown, string(class))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown entity classes: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Merge returns a new Config where values from override win over base
func Merge(base, override Config) Config {
	merged := make(Config, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// ConfigFromMap converts a string-keyed map, as produced by viper or JSON
// decoding, into a Config.
func ConfigFromMap(m map[string]bool) Config {
	if m == nil {
		return nil
	}
	cfg := make(Config, len(m))
	for k, v := range m {
		cfg[Class(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	return cfg
}
