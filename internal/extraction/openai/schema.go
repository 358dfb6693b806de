package openai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cruce/internal/validation/models"
	dErrors "cruce/pkg/domain-errors"
)

// notFoundSentinel is the value the model is instructed to use for fields it
// cannot read.
const notFoundSentinel = "NOT_FOUND"

// payloadSchema validates the model's answer before any mapping happens, so
// malformed answers are caught with a clear error instead of surfacing as
// odd zero values downstream.
var payloadSchema = jsonschema.MustCompileString("extraction_payload.json", `{
	"type": "object",
	"required": ["fields"],
	"properties": {
		"fields": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["value"],
				"properties": {
					"value": {"type": ["string", "number", "null"]},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"partial": {"type": "boolean"}
				}
			}
		}
	}
}`)

// fieldPayload is one extracted field as the model reports it.
type fieldPayload struct {
	Value      any      `json:"value"`
	Confidence *float64 `json:"confidence"`
	Partial    bool     `json:"partial"`
}

// documentPayload is the model's answer for one document image.
type documentPayload struct {
	Fields map[string]fieldPayload `json:"fields"`
}

// parsePayload strips markdown fences, validates the answer against the
// schema, and decodes it.
func parsePayload(content string) (documentPayload, error) {
	cleaned := stripFences(content)

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return documentPayload{}, dErrors.Wrap(err, dErrors.CodeValidation, "extraction answer is not JSON")
	}
	if err := payloadSchema.Validate(decoded); err != nil {
		return documentPayload{}, dErrors.Wrap(err, dErrors.CodeValidation, "extraction answer violates schema")
	}

	var payload documentPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return documentPayload{}, dErrors.Wrap(err, dErrors.CodeValidation, "decode extraction answer")
	}
	return payload, nil
}

// stripFences removes a surrounding markdown code fence if the model added
// one despite the JSON response format.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// toField maps one reported field into the domain shape. Absent keys, null
// values, and the NOT_FOUND sentinel all become not_found fields with no
// value, preserving the invariant that not_found carries nothing.
func toField(payload documentPayload, name, label string) models.Field {
	field := models.Field{Name: name, Label: label, Status: models.FieldStatusNotFound}

	fp, ok := payload.Fields[name]
	if !ok || fp.Value == nil {
		return field
	}

	var value string
	switch v := fp.Value.(type) {
	case string:
		value = strings.TrimSpace(v)
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return field
	}
	if value == "" || strings.EqualFold(value, notFoundSentinel) {
		return field
	}

	field.Value = value
	field.Confidence = fp.Confidence
	if fp.Partial {
		field.Status = models.FieldStatusPartial
	} else {
		field.Status = models.FieldStatusFound
	}
	return field
}

// missingField is the degraded form used when a document's extraction failed
// outright.
func missingField(name, label string) models.Field {
	return models.Field{Name: name, Label: label, Status: models.FieldStatusNotFound}
}
