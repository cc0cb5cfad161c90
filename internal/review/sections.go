package review

// SectionOrder is the canonical ordering of editable top-level sections.
// Keys present in a document but absent from this list (confidence
// metadata and future fields) are preserved verbatim on every round-trip
// but never exposed for editing.
var SectionOrder = []string{
	"patient", "encounter", "diagnoses", "medications",
	"vitals", "investigations", "procedures", "chief_complaints",
	"treating_doctor", "referring_doctor", "laboratory",
	"observations", "test_category", "report_date", "interpretation",
}

// BuildSectionSchemas returns a JSON-Schema (draft 2020-12 subset) per
// known section as generic maps. The shapes are deliberately loose:
// they pin the top-level kind of each section so a human edit cannot
// silently turn a list into a scalar, while leaving field-level content
// to the backend's own validation.
func BuildSectionSchemas() map[string]map[string]any {
	objectProp := func() map[string]any {
		return map[string]any{"type": "object"}
	}
	arrayProp := func() map[string]any {
		return map[string]any{"type": "array"}
	}
	stringProp := func() map[string]any {
		return map[string]any{"type": "string"}
	}

	schemas := map[string]map[string]any{
		"patient":          objectProp(),
		"encounter":        objectProp(),
		"treating_doctor":  objectProp(),
		"referring_doctor": objectProp(),
		"laboratory":       objectProp(),

		"diagnoses":        arrayProp(),
		"medications":      arrayProp(),
		"vitals":           arrayProp(),
		"investigations":   arrayProp(),
		"procedures":       arrayProp(),
		"observations":     arrayProp(),
		"chief_complaints": arrayProp(),

		"test_category":  stringProp(),
		"interpretation": stringProp(),
	}
	schemas["report_date"] = map[string]any{
		"type":    "string",
		"pattern": `^\d{4}-\d{2}-\d{2}`,
	}
	return schemas
}
