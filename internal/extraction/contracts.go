// Package extraction defines the boundary between the validation service and
// the vision extraction upstream. Concrete clients live in subpackages.
package extraction

import (
	"cruce/internal/validation/models"
)

// ImageKind names one captured image in a submission batch.
type ImageKind string

const (
	ImageDoda         ImageKind = "doda"
	ImageManifest     ImageKind = "emanifest"
	ImagePrefile      ImageKind = "prefile"
	ImageTractorPlate ImageKind = "tractor_plate"
	ImageTrailerPlate ImageKind = "trailer_plate"
)

// Batch carries the optimized image bytes for one submission. Every image is
// required; the handler rejects incomplete submissions before extraction.
type Batch struct {
	Doda         []byte
	Manifest     []byte
	Prefile      []byte
	TractorPlate []byte
	TrailerPlate []byte
}

// Result is what extraction produced. Degraded lists the images whose
// extraction failed and came back with every field not_found; validation
// still runs so the report shows exactly what is missing.
type Result struct {
	Documents models.DocumentSet
	Degraded  []ImageKind
}
