package anonymizer

import (
	"fmt"
	"strings"
)

type mappingKey struct {
	kind       EntityType
	normalized string
}

// Store is the per-request mapping table. It is not safe for concurrent use
// and must not outlive the request that created it.
type Store struct {
	index    map[mappingKey]int
	mappings []EntityMapping
	counters map[EntityType]int
}

// NewStore creates an empty mapping store
func NewStore() *Store {
	return &Store{
		index:    make(map[mappingKey]int),
		counters: make(map[EntityType]int),
	}
}

// GetOrCreate returns the token for original, allocating the next
// [TYPE_N] token the first time a (type, lowercase(original)) pair is seen.
// position is recorded only on creation.
func (s *Store) GetOrCreate(kind EntityType, original string, position *Span) string {
	key := mappingKey{kind: kind, normalized: strings.ToLower(original)}
	if i, ok := s.index[key]; ok {
		return s.mappings[i].Token
	}

	s.counters[kind]++
	token := formatToken(kind, s.counters[kind])

	s.index[key] = len(s.mappings)
	s.mappings = append(s.mappings, EntityMapping{
		Original: original,
		Token:    token,
		Type:     kind,
		Position: position,
	})

	return token
}

// Mappings returns a copy of the recorded mappings in creation order
func (s *Store) Mappings() []EntityMapping {
	out := make([]EntityMapping, len(s.mappings))
	copy(out, s.mappings)
	return out
}

// CountByType returns the number of distinct entities per type
func (s *Store) CountByType() map[EntityType]int {
	counts := make(map[EntityType]int, len(s.counters))
	for _, m := range s.mappings {
		counts[m.Type]++
	}
	return counts
}

// Len returns the number of distinct entities recorded
func (s *Store) Len() int {
	return len(s.mappings)
}

func formatToken(kind EntityType, n int) string {
	return fmt.Sprintf("[%s_%d]", kind, n)
}
