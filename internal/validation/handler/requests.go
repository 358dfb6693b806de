package handler

import (
	"encoding/base64"
	"strings"

	"cruce/internal/extraction"
	"cruce/internal/validation/models"
	dErrors "cruce/pkg/domain-errors"
)

const (
	maxDriverNameLength = 200
	// maxImageBytes caps one decoded image. Phone cameras top out well
	// below this.
	maxImageBytes = 15 << 20
)

// ValidateRequest is the HTTP request body for POST /api/validate: five
// document images plus the driver's declared name.
type ValidateRequest struct {
	DriverName        string `json:"driver_name"`
	DodaImage         string `json:"doda_image"`
	EmanifestImage    string `json:"emanifest_image"`
	PrefileImage      string `json:"prefile_image"`
	TractorPlateImage string `json:"tractor_plate_image"`
	TrailerPlateImage string `json:"trailer_plate_image"`

	// Parsed values (populated by Validate)
	parsedBatch extraction.Batch
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ValidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.DriverName = strings.TrimSpace(r.DriverName)
	if r.DriverName == "" {
		return dErrors.New(dErrors.CodeValidation, "driver_name is required")
	}
	if len(r.DriverName) > maxDriverNameLength {
		return dErrors.Newf(dErrors.CodeValidation, "driver_name must be at most %d characters", maxDriverNameLength)
	}

	images := []struct {
		field string
		value string
		dest  *[]byte
	}{
		{field: "doda_image", value: r.DodaImage, dest: &r.parsedBatch.Doda},
		{field: "emanifest_image", value: r.EmanifestImage, dest: &r.parsedBatch.Manifest},
		{field: "prefile_image", value: r.PrefileImage, dest: &r.parsedBatch.Prefile},
		{field: "tractor_plate_image", value: r.TractorPlateImage, dest: &r.parsedBatch.TractorPlate},
		{field: "trailer_plate_image", value: r.TrailerPlateImage, dest: &r.parsedBatch.TrailerPlate},
	}
	for _, img := range images {
		decoded, err := decodeImage(img.field, img.value)
		if err != nil {
			return err
		}
		*img.dest = decoded
	}
	return nil
}

// Batch returns the decoded images.
func (r *ValidateRequest) Batch() extraction.Batch {
	return r.parsedBatch
}

// decodeImage accepts a base64 data URL (image/jpeg or image/png) or bare
// base64 and returns the raw bytes.
func decodeImage(field, value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}

	if strings.HasPrefix(value, "data:") {
		header, payload, found := strings.Cut(value, ",")
		if !found {
			return nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid data URL", field)
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be base64-encoded", field)
		}
		mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		switch strings.ToLower(mime) {
		case "image/jpeg", "image/jpg", "image/png":
		default:
			return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a JPEG or PNG image", field)
		}
		value = payload
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s is not valid base64", field)
	}
	if len(decoded) == 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s is empty", field)
	}
	if len(decoded) > maxImageBytes {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s exceeds the %d MB image limit", field, maxImageBytes>>20)
	}
	return decoded, nil
}

// FieldPayload is one pre-extracted field value. Status is optional; when
// absent it is inferred from the value.
type FieldPayload struct {
	Value      string   `json:"value"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence"`
}

// DriverDataPayload carries the driver form data and the plate photographs'
// extracted values.
type DriverDataPayload struct {
	Name         string        `json:"name"`
	TractorPlate *FieldPayload `json:"tractor_plate"`
	TrailerPlate *FieldPayload `json:"trailer_plate"`
}

// DodaPayload is the pre-extracted DODA.
type DodaPayload struct {
	IssueDate     *FieldPayload `json:"issue_date"`
	CustomsOffice *FieldPayload `json:"customs_office"`
}

// ManifestPayload is the pre-extracted e-manifest.
type ManifestPayload struct {
	TractorPlate  *FieldPayload `json:"tractor_plate"`
	TrailerPlate  *FieldPayload `json:"trailer_plate"`
	OperatorName  *FieldPayload `json:"operator_name"`
	CustomsOffice *FieldPayload `json:"customs_office"`
	EntryNumber   *FieldPayload `json:"entry_number"`
	BrokerCode    *FieldPayload `json:"broker_code"`
	Description   *FieldPayload `json:"description"`
	Quantity      *FieldPayload `json:"quantity"`
	Weight        *FieldPayload `json:"weight"`
}

// PrefilePayload is the pre-extracted prefile entry.
type PrefilePayload struct {
	EntryNumber *FieldPayload `json:"entry_number"`
	BrokerCode  *FieldPayload `json:"broker_code"`
	Description *FieldPayload `json:"description"`
	Quantity    *FieldPayload `json:"quantity"`
	Weight      *FieldPayload `json:"weight"`
}

// DocumentsPayload groups the three scanned documents.
type DocumentsPayload struct {
	Doda      *DodaPayload     `json:"doda"`
	Emanifest *ManifestPayload `json:"emanifest"`
	Prefile   *PrefilePayload  `json:"prefile"`
}

// DocumentsRequest is the HTTP request body for POST /api/validate/documents:
// a submission whose extraction already happened elsewhere. Absent fields
// degrade to not_found; only the top-level shape is mandatory.
type DocumentsRequest struct {
	DriverData *DriverDataPayload `json:"driver_data"`
	Documents  *DocumentsPayload  `json:"documents"`

	// Parsed values (populated by Validate)
	parsedSubmission models.Submission
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *DocumentsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.DriverData == nil {
		return dErrors.New(dErrors.CodeValidation, "driver_data is required")
	}
	if r.Documents == nil {
		return dErrors.New(dErrors.CodeValidation, "documents is required")
	}
	if r.Documents.Doda == nil {
		return dErrors.New(dErrors.CodeValidation, "documents.doda is required")
	}
	if r.Documents.Emanifest == nil {
		return dErrors.New(dErrors.CodeValidation, "documents.emanifest is required")
	}
	if r.Documents.Prefile == nil {
		return dErrors.New(dErrors.CodeValidation, "documents.prefile is required")
	}

	r.DriverData.Name = strings.TrimSpace(r.DriverData.Name)
	if len(r.DriverData.Name) > maxDriverNameLength {
		return dErrors.Newf(dErrors.CodeValidation, "driver_data.name must be at most %d characters", maxDriverNameLength)
	}

	doda := r.Documents.Doda
	manifest := r.Documents.Emanifest
	prefile := r.Documents.Prefile

	var fieldErr error
	field := func(p *FieldPayload, name, label string) models.Field {
		f, err := toField(p, name, label)
		if err != nil && fieldErr == nil {
			fieldErr = err
		}
		return f
	}

	r.parsedSubmission = models.Submission{
		DriverName: r.DriverData.Name,
		Documents: models.DocumentSet{
			Doda: models.DodaData{
				IssueDate:     field(doda.IssueDate, "issue_date", "Issue date"),
				CustomsOffice: field(doda.CustomsOffice, "customs_office", "Customs office"),
			},
			Manifest: models.ManifestData{
				TractorPlate:  field(manifest.TractorPlate, "tractor_plate", "Tractor plate"),
				TrailerPlate:  field(manifest.TrailerPlate, "trailer_plate", "Trailer plate"),
				OperatorName:  field(manifest.OperatorName, "operator_name", "Operator name"),
				CustomsOffice: field(manifest.CustomsOffice, "customs_office", "Customs office"),
				EntryNumber:   field(manifest.EntryNumber, "entry_number", "Entry number"),
				BrokerCode:    field(manifest.BrokerCode, "broker_code", "Broker code"),
				Description:   field(manifest.Description, "description", "Cargo description"),
				Quantity:      field(manifest.Quantity, "quantity", "Quantity"),
				Weight:        field(manifest.Weight, "weight", "Weight"),
			},
			Prefile: models.PrefileData{
				EntryNumber: field(prefile.EntryNumber, "entry_number", "Entry number"),
				BrokerCode:  field(prefile.BrokerCode, "broker_code", "Broker code"),
				Description: field(prefile.Description, "description", "Cargo description"),
				Quantity:    field(prefile.Quantity, "quantity", "Quantity"),
				Weight:      field(prefile.Weight, "weight", "Weight"),
			},
			Plates: models.PlatePairData{
				Tractor: field(r.DriverData.TractorPlate, "tractor_plate", "Tractor plate"),
				Trailer: field(r.DriverData.TrailerPlate, "trailer_plate", "Trailer plate"),
			},
		},
	}
	return fieldErr
}

// Submission returns the parsed submission.
func (r *DocumentsRequest) Submission() models.Submission {
	return r.parsedSubmission
}

// toField maps one payload onto a typed field. A nil payload or an explicit
// not_found status yields a not_found field with no value.
func toField(p *FieldPayload, name, label string) (models.Field, error) {
	f := models.Field{Name: name, Label: label, Status: models.FieldStatusNotFound}
	if p == nil {
		return f, nil
	}

	value := strings.TrimSpace(p.Value)
	status := models.FieldStatus(strings.TrimSpace(p.Status))
	if status == "" {
		status = models.FieldStatusNotFound
		if value != "" {
			status = models.FieldStatusFound
		}
	} else if !status.IsValid() {
		return f, dErrors.Newf(dErrors.CodeValidation, "field %s has unknown status %q", name, p.Status)
	}

	f.Status = status
	if status != models.FieldStatusNotFound {
		f.Value = value
		f.Confidence = p.Confidence
	}
	return f, nil
}
