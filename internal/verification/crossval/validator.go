// Package crossval reconciles fields extracted from multiple document
// sources (front OCR, back-of-ID barcode, live face capture) into a single
// consistency verdict. Validation never fails hard: thin data degrades to
// a conservative low-score result that defers to human review.
package crossval

import (
	"fmt"
	"strings"
	"time"

	"idswyft/internal/verification/models"
)

const (
	// Source data-quality gates choosing the validation strategy.
	backQualityFloor  = 0.3
	frontQualityFloor = 0.5

	// fieldMatchFloor is the per-field score needed to count as a match.
	fieldMatchFloor = 0.7

	// manualReviewFloor routes low-scoring comparisons to human review.
	manualReviewFloor = 0.5

	// Front-only thresholds.
	frontOnlyConsistencyFloor = 0.6
	frontOnlyReviewFloor      = 0.4

	// degradedScore is the fixed verdict when neither source is usable.
	degradedScore = 0.25
)

// Validator compares extracted field sets. Stateless and safe for
// concurrent use.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate reconciles front fields against optional back fields and an
// optional face signal. The crossThreshold comes from the tenant's resolved
// threshold set. Always returns a result.
func (v *Validator) Validate(front, back *models.ExtractedFields, face *models.FaceSignal, crossThreshold float64) *models.ValidationResult {
	frontQuality := SourceQuality(front)
	backQuality := SourceQuality(back)

	switch {
	case back != nil && backQuality > backQualityFloor:
		return v.compareSources(front, back, crossThreshold)
	case frontQuality > frontQualityFloor:
		return v.scoreFrontOnly(front, face)
	default:
		return &models.ValidationResult{
			OverallConsistency:   false,
			MatchScore:           degradedScore,
			RequiresManualReview: true,
			Notes: []string{
				"insufficient extracted data for automated validation; deferring to manual review",
			},
		}
	}
}

// SourceQuality scores how much usable data one source carries, weighted by
// how discriminating each field is for identity matching.
func SourceQuality(fields *models.ExtractedFields) float64 {
	if fields == nil {
		return 0
	}
	var score float64
	if strings.TrimSpace(fields.Name) != "" {
		score += 0.3
	}
	if strings.TrimSpace(fields.DocumentNumber) != "" {
		score += 0.3
	}
	if strings.TrimSpace(fields.DateOfBirth) != "" {
		score += 0.2
	}
	if strings.TrimSpace(fields.ExpirationDate) != "" {
		score += 0.1
	}
	if strings.TrimSpace(fields.Address) != "" {
		score += 0.1
	}
	return score
}

// compareSources runs the full four-field pairwise comparison.
func (v *Validator) compareSources(front, back *models.ExtractedFields, crossThreshold float64) *models.ValidationResult {
	result := &models.ValidationResult{
		FieldDetails: map[string]models.FieldComparison{},
		Notes:        []string{},
	}

	type pair struct {
		name    string
		front   string
		back    string
		compare func(a, b string) float64
	}
	pairs := []pair{
		{"name", front.Name, back.Name, compareNames},
		{"date_of_birth", front.DateOfBirth, back.DateOfBirth, compareDates},
		{"document_number", front.DocumentNumber, back.DocumentNumber, compareIdentifiers},
		{"expiration_date", front.ExpirationDate, back.ExpirationDate, compareDates},
	}

	var total float64
	var compared int
	for _, p := range pairs {
		if strings.TrimSpace(p.front) == "" || strings.TrimSpace(p.back) == "" {
			continue
		}
		score := p.compare(p.front, p.back)
		match := score >= fieldMatchFloor
		result.FieldDetails[p.name] = models.FieldComparison{
			Match:      match,
			FrontValue: p.front,
			BackValue:  p.back,
			Score:      score,
		}
		total += score
		compared++
		if match {
			result.Matches++
		} else {
			result.Discrepancies++
			result.Notes = append(result.Notes, fmt.Sprintf("%s differs between document front and back", p.name))
		}
	}
	result.TotalChecks = compared

	if compared == 0 {
		result.MatchScore = degradedScore
		result.RequiresManualReview = true
		result.Notes = append(result.Notes, "no overlapping fields to compare between sources")
		return result
	}

	result.MatchScore = total / float64(compared)
	result.OverallConsistency = result.MatchScore >= crossThreshold
	result.RequiresManualReview = result.MatchScore < manualReviewFloor
	return result
}

// scoreFrontOnly builds a presence/plausibility score when only the front
// side yielded data. No comparison is possible, so no discrepancies are
// recorded; absence of a back upload alone must not force manual review.
func (v *Validator) scoreFrontOnly(front *models.ExtractedFields, face *models.FaceSignal) *models.ValidationResult {
	result := &models.ValidationResult{
		FieldDetails: map[string]models.FieldComparison{},
		Notes:        []string{"back of document unavailable; validated front fields only"},
	}

	var score float64
	if len(strings.TrimSpace(front.Name)) > 3 {
		score += 0.3
		result.Matches++
	}
	if strings.TrimSpace(front.DocumentNumber) != "" {
		score += 0.3
		result.Matches++
	}
	if _, ok := parseDate(front.DateOfBirth); ok {
		score += 0.2
		result.Matches++
	}
	if _, ok := parseDate(front.ExpirationDate); ok {
		score += 0.2
		result.Matches++
	}
	result.TotalChecks = 4

	if face != nil && face.FaceDetected {
		score += 0.1
		result.Notes = append(result.Notes, "live face detected in document photo")
	}
	if score > 1.0 {
		score = 1.0
	}

	result.MatchScore = score
	result.OverallConsistency = score >= frontOnlyConsistencyFloor
	result.RequiresManualReview = score < frontOnlyReviewFloor
	return result
}

// compareNames scores two holder names tolerantly: exact match, containment,
// then shared-token overlap.
func compareNames(a, b string) float64 {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.8
	}

	tokensA := strings.Fields(na)
	tokensB := strings.Fields(nb)
	shared := 0
	for _, ta := range tokensA {
		if len(ta) <= 2 {
			continue
		}
		for _, tb := range tokensB {
			if ta == tb {
				shared++
				break
			}
		}
	}
	max := len(tokensA)
	if len(tokensB) > max {
		max = len(tokensB)
	}
	if max == 0 {
		return 0
	}
	return float64(shared) / float64(max)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(s))), " ")
}

// compareDates normalizes both values to a calendar date. Identical
// calendar dates score 1.0. Zone-bearing timestamps of the same instant
// can render different calendar dates; those still count as agreement,
// slightly discounted at 0.9.
func compareDates(a, b string) float64 {
	da, okA := parseDate(a)
	db, okB := parseDate(b)
	if !okA || !okB {
		if strings.TrimSpace(a) == strings.TrimSpace(b) && strings.TrimSpace(a) != "" {
			return 1.0
		}
		return 0
	}
	if da.Format("2006-01-02") == db.Format("2006-01-02") {
		return 1.0
	}
	if da.Equal(db) {
		return 0.9
	}
	return 0
}

// dateLayouts covers the notations seen across OCR text, PDF417 payloads,
// and capture-pipeline metadata (which sends full timestamps).
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"01/02/06",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareIdentifiers scores document/license numbers: strip everything
// non-alphanumeric, reward exact match, scale containment by length ratio.
func compareIdentifiers(a, b string) float64 {
	na := normalizeIdentifier(a)
	nb := normalizeIdentifier(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter, longer := len(na), len(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}
	return 0
}

func normalizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
