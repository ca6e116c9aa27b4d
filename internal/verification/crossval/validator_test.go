package crossval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"idswyft/internal/verification/models"
)

const crossThreshold = 0.8

func TestValidate_MatchingSourcesScorePerfect(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "John Smith",
		DocumentNumber: "X123",
		DateOfBirth:    "1990-01-01",
	}
	// Back-of-ID barcode fields after first/last name combination.
	back := &models.ExtractedFields{
		Name:           "John Smith",
		DocumentNumber: "X123",
		DateOfBirth:    "1990-01-01",
	}

	result := v.Validate(front, back, nil, crossThreshold)

	assert.InDelta(t, 1.0, result.MatchScore, 0.001)
	assert.True(t, result.OverallConsistency)
	assert.False(t, result.RequiresManualReview)
	assert.Equal(t, 3, result.Matches)
	assert.Equal(t, 0, result.Discrepancies)
	assert.Equal(t, 3, result.TotalChecks)
}

func TestValidate_DiscrepantNumberLowersScore(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "John Smith",
		DocumentNumber: "X123999",
		DateOfBirth:    "1990-01-01",
	}
	back := &models.ExtractedFields{
		Name:           "John Smith",
		DocumentNumber: "B777000",
		DateOfBirth:    "1990-01-01",
	}

	result := v.Validate(front, back, nil, crossThreshold)

	assert.Less(t, result.MatchScore, 1.0)
	assert.Equal(t, 1, result.Discrepancies)
	assert.False(t, result.FieldDetails["document_number"].Match)
	assert.NotEmpty(t, result.Notes)
}

func TestValidate_DateNotationDifferencesStillMatch(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:        "John Smith",
		DateOfBirth: "01/15/1990",
	}
	back := &models.ExtractedFields{
		Name:           "John Smith",
		DateOfBirth:    "1990-01-15",
		DocumentNumber: "Z9",
	}

	result := v.Validate(front, back, nil, crossThreshold)

	detail := result.FieldDetails["date_of_birth"]
	assert.True(t, detail.Match)
	assert.InDelta(t, 1.0, detail.Score, 0.001)
}

func TestCompareDates(t *testing.T) {
	// Same calendar date, different notation.
	assert.InDelta(t, 1.0, compareDates("01/15/1990", "1990-01-15"), 0.001)

	// Same instant, zone shift pushes it across midnight: the calendar
	// dates disagree but the values still describe the same moment.
	assert.InDelta(t, 0.9, compareDates("2024-03-01T23:30:00-05:00", "2024-03-02T04:30:00Z"), 0.001)

	// Different dates outright.
	assert.InDelta(t, 0.0, compareDates("1990-01-15", "1991-01-15"), 0.001)

	// Unparseable values only match verbatim.
	assert.InDelta(t, 1.0, compareDates("JAN 15 1990", "JAN 15 1990"), 0.001)
	assert.InDelta(t, 0.0, compareDates("JAN 15 1990", "JAN 16 1990"), 0.001)
}

// Absence of a back upload must not force manual review when the front
// side alone carries strong data.
func TestValidate_FrontOnlyGracefulDegradation(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "JANE DOE",
		DocumentNumber: "D1234567",
		DateOfBirth:    "01/15/1990",
		ExpirationDate: "08/31/2027",
	}

	result := v.Validate(front, nil, nil, crossThreshold)

	assert.True(t, result.OverallConsistency)
	assert.False(t, result.RequiresManualReview)
	assert.Equal(t, 0, result.Discrepancies)
	assert.Equal(t, 4, result.Matches)
	assert.InDelta(t, 1.0, result.MatchScore, 0.001)
}

func TestValidate_FaceBonusAppliesFrontOnly(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "JANE DOE",
		DocumentNumber: "D1234567",
	}
	face := &models.FaceSignal{FaceDetected: true}

	withFace := v.Validate(front, nil, face, crossThreshold)
	withoutFace := v.Validate(front, nil, nil, crossThreshold)

	assert.InDelta(t, withoutFace.MatchScore+0.1, withFace.MatchScore, 0.001)
}

func TestValidate_PoorBackFallsBackToFrontOnly(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "JANE DOE",
		DocumentNumber: "D1234567",
		DateOfBirth:    "01/15/1990",
		ExpirationDate: "08/31/2027",
	}
	// Back side extracted almost nothing; its quality score gates it out.
	back := &models.ExtractedFields{Address: "123 MAIN ST"}

	result := v.Validate(front, back, nil, crossThreshold)

	assert.True(t, result.OverallConsistency)
	assert.Contains(t, result.Notes[0], "front fields only")
}

func TestValidate_ThinDataDefersToManualReview(t *testing.T) {
	v := New()

	result := v.Validate(&models.ExtractedFields{RawText: "smudge"}, nil, nil, crossThreshold)

	assert.False(t, result.OverallConsistency)
	assert.True(t, result.RequiresManualReview)
	assert.InDelta(t, degradedScore, result.MatchScore, 0.001)
	assert.NotEmpty(t, result.Notes)
}

func TestValidate_IsIdempotent(t *testing.T) {
	v := New()

	front := &models.ExtractedFields{
		Name:           "John Smith",
		DocumentNumber: "X123",
		DateOfBirth:    "1990-01-01",
	}
	back := &models.ExtractedFields{
		Name:           "Smith John",
		DocumentNumber: "X-123",
		DateOfBirth:    "01/01/1990",
	}

	first := v.Validate(front, back, nil, crossThreshold)
	second := v.Validate(front, back, nil, crossThreshold)

	assert.Equal(t, first, second)
}

func TestCompareNames(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"exact match ignoring case", "John Smith", "JOHN SMITH", 1.0},
		{"containment", "JOHN", "JOHN SMITH", 0.8},
		{"token overlap with reordering", "John Smith", "Smith John", 1.0},
		{"partial token overlap", "John Michael Smith", "John Smith Jr", 2.0 / 3.0},
		{"no overlap", "John Smith", "Ana Lucia", 0},
		{"empty side", "", "John Smith", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, compareNames(tt.a, tt.b), 0.001)
		})
	}
}

func TestCompareIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"exact after stripping separators", "X-123", "X123", 1.0},
		{"containment scaled by length", "X123", "X12345678", 4.0 / 9.0},
		{"mismatch", "X123", "B777", 0},
		{"empty", "", "X123", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, compareIdentifiers(tt.a, tt.b), 0.001)
		})
	}
}

func TestSourceQuality(t *testing.T) {
	assert.Zero(t, SourceQuality(nil))
	assert.Zero(t, SourceQuality(&models.ExtractedFields{RawText: "noise"}))

	full := &models.ExtractedFields{
		Name:           "Jane Doe",
		DocumentNumber: "D1234567",
		DateOfBirth:    "1990-01-15",
		ExpirationDate: "2027-08-31",
		Address:        "123 Main St",
	}
	assert.InDelta(t, 1.0, SourceQuality(full), 0.001)
}
