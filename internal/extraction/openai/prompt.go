package openai

import (
	"fmt"
	"strings"

	"cruce/internal/extraction"
)

// fieldSpec is one field the model must locate on a document.
type fieldSpec struct {
	name  string
	label string
	hint  string
}

// documentSpec describes one image kind: what the document is and which
// fields to pull from it.
type documentSpec struct {
	kind   extraction.ImageKind
	title  string
	fields []fieldSpec
}

var documentSpecs = map[extraction.ImageKind]documentSpec{
	extraction.ImageDoda: {
		kind:  extraction.ImageDoda,
		title: "a Mexican customs DODA (Documento de Operación para Despacho Aduanero)",
		fields: []fieldSpec{
			{name: "issue_date", label: "Issue date", hint: "the fecha de emisión, as printed"},
			{name: "customs_office", label: "Customs office", hint: "the aduana name or code"},
		},
	},
	extraction.ImageManifest: {
		kind:  extraction.ImageManifest,
		title: "an electronic cargo manifest (e-manifest)",
		fields: []fieldSpec{
			{name: "tractor_plate", label: "Tractor plate", hint: "the tractor license plate"},
			{name: "trailer_plate", label: "Trailer plate", hint: "the trailer license plate"},
			{name: "operator_name", label: "Operator name", hint: "the driver or operator full name"},
			{name: "customs_office", label: "Customs office", hint: "the customs office of crossing"},
			{name: "entry_number", label: "Entry number", hint: "the customs entry number (pedimento)"},
			{name: "broker_code", label: "Broker code", hint: "the customs broker (patente) code"},
			{name: "description", label: "Cargo description", hint: "the merchandise description"},
			{name: "quantity", label: "Quantity", hint: "the declared quantity"},
			{name: "weight", label: "Weight", hint: "the declared gross weight"},
		},
	},
	extraction.ImagePrefile: {
		kind:  extraction.ImagePrefile,
		title: "a pre-filed US customs entry (prefile)",
		fields: []fieldSpec{
			{name: "entry_number", label: "Entry number", hint: "the entry number"},
			{name: "broker_code", label: "Broker code", hint: "the filer or broker code"},
			{name: "description", label: "Cargo description", hint: "the merchandise description"},
			{name: "quantity", label: "Quantity", hint: "the declared quantity"},
			{name: "weight", label: "Weight", hint: "the declared gross weight"},
		},
	},
	extraction.ImageTractorPlate: {
		kind:  extraction.ImageTractorPlate,
		title: "a photograph of a truck tractor's license plate",
		fields: []fieldSpec{
			{name: "plate_number", label: "Plate number", hint: "the license plate characters"},
		},
	},
	extraction.ImageTrailerPlate: {
		kind:  extraction.ImageTrailerPlate,
		title: "a photograph of a cargo trailer's license plate",
		fields: []fieldSpec{
			{name: "plate_number", label: "Plate number", hint: "the license plate characters"},
		},
	},
}

// buildPrompt renders the extraction instructions for one document kind. The
// model must answer with the JSON shape validated by payloadSchema.
func buildPrompt(spec documentSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The image shows %s. Extract the following fields exactly as printed:\n", spec.title)
	for _, f := range spec.fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.name, f.hint)
	}
	b.WriteString(`
Respond with only a JSON object of this shape:
{"fields": {"<field_name>": {"value": "<text>", "confidence": <0.0-1.0>, "partial": <bool>}}}

Rules:
- Include every listed field name exactly once.
- Use the string "NOT_FOUND" as the value when a field is absent or unreadable.
- Set "partial" to true when only part of the value is legible.
- "confidence" reflects how certain you are of the transcription.
- Transcribe text exactly as printed. Do not translate, expand, or reformat.
- For dates, keep the printed form, whether numeric or written out in Spanish.
`)
	return b.String()
}
