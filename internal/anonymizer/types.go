package anonymizer

// EntityType is the tag used in tokens and statistics
type EntityType string

const (
	TypePerson   EntityType = "PERSONA"
	TypeEmail    EntityType = "EMAIL"
	TypePhone    EntityType = "TELEFONO"
	TypeID       EntityType = "ID"
	TypeCard     EntityType = "TARJETA"
	TypeAddress  EntityType = "DIRECCION"
	TypeURL      EntityType = "URL"
	TypeCompany  EntityType = "EMPRESA"
	TypeLocation EntityType = "UBICACION"
)

// Span is a half-open byte range [Start, End) in the caller's input text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// EntityMapping records which token replaced which original value
type EntityMapping struct {
	Original string     `json:"original"`
	Token    string     `json:"token"`
	Type     EntityType `json:"type"`
	Position *Span      `json:"position,omitempty"`
}

// Stats summarizes one anonymization run
type Stats struct {
	EntitiesFound    int                `json:"entities_found"`
	ProcessingTimeMS float64            `json:"processing_time_ms"`
	EntityBreakdown  map[EntityType]int `json:"entity_breakdown"`
}

// Result is the output of Anonymize
type Result struct {
	AnonymizedText string          `json:"anonymized_text"`
	Mappings       []EntityMapping `json:"mappings"`
	Stats          Stats           `json:"stats"`
}

// emptyResult is the well-formed shape returned alongside validation errors
func emptyResult(text string) *Result {
	return &Result{
		AnonymizedText: text,
		Mappings:       []EntityMapping{},
		Stats: Stats{
			EntityBreakdown: map[EntityType]int{},
		},
	}
}
