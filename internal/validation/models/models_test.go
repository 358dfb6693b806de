package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldStatus(t *testing.T) {
	for _, valid := range []string{"found", "not_found", "partial"} {
		status, err := ParseFieldStatus(valid)
		require.NoError(t, err)
		assert.True(t, status.IsValid())
	}

	_, err := ParseFieldStatus("maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field status")
}

func TestField_Present(t *testing.T) {
	conf := 0.9

	assert.True(t, Field{Value: "ABC123", Status: FieldStatusFound, Confidence: &conf}.Present())
	assert.True(t, Field{Value: "ABC1", Status: FieldStatusPartial}.Present())
	assert.False(t, Field{Status: FieldStatusNotFound}.Present())
	assert.False(t, Field{Value: "", Status: FieldStatusFound}.Present())
}

func TestDocumentSet_All(t *testing.T) {
	docs := DocumentSet{}.All()

	require.Len(t, docs, 4)
	assert.Equal(t, DocumentTypeDoda, docs[0].Type())
	assert.Equal(t, DocumentTypeManifest, docs[1].Type())
	assert.Equal(t, DocumentTypePrefile, docs[2].Type())
	assert.Equal(t, DocumentTypePlates, docs[3].Type())
}

func TestManifestData_FieldsOrder(t *testing.T) {
	m := ManifestData{
		TractorPlate: Field{Name: "tractor_plate"},
		Weight:       Field{Name: "weight"},
	}

	fields := m.Fields()
	require.Len(t, fields, 9)
	assert.Equal(t, "tractor_plate", fields[0].Name)
	assert.Equal(t, "weight", fields[8].Name)
}

func TestOverallStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		failed  int
		warning int
		want    OverallStatus
	}{
		{name: "all passed", failed: 0, warning: 0, want: OverallStatusSuccess},
		{name: "warnings only", failed: 0, warning: 2, want: OverallStatusPartial},
		{name: "one failure", failed: 1, warning: 0, want: OverallStatusFailed},
		{name: "failure outranks warning", failed: 1, warning: 1, want: OverallStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatusFor(tt.failed, tt.warning))
		})
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityError, SeverityFor(RuleStatusFailed))
	assert.Equal(t, SeverityWarning, SeverityFor(RuleStatusWarning))
}

func TestField_JSONShape(t *testing.T) {
	conf := 0.87
	found, err := json.Marshal(Field{
		Name:       "entry_number",
		Label:      "Entry number",
		Value:      "24 01 3420 4002345",
		Status:     FieldStatusFound,
		Confidence: &conf,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "entry_number",
		"label": "Entry number",
		"value": "24 01 3420 4002345",
		"status": "found",
		"confidence": 0.87
	}`, string(found))

	missing, err := json.Marshal(Field{Name: "weight", Label: "Weight", Status: FieldStatusNotFound})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "weight", "label": "Weight", "status": "not_found"}`, string(missing))
}
