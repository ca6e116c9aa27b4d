package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }
func i(v int) *int         { return &v }

func testTenantID() id.TenantID {
	return id.TenantID(uuid.MustParse("11111111-2222-3333-4444-555555555555"))
}

func TestDefaults(t *testing.T) {
	s := Defaults(testTenantID())

	assert.Equal(t, 85.0, s.AutoApproveThreshold)
	assert.Equal(t, 60.0, s.ManualReviewThreshold)
	assert.True(t, s.RequireLiveness)
	assert.False(t, s.RequireBackOfID)
	assert.Equal(t, 3, s.MaxAttempts)
	assert.NoError(t, s.Validate())
}

func TestValidate_ManualReviewMustBeBelowAutoApprove(t *testing.T) {
	s := Defaults(testTenantID())
	s.AutoApproveThreshold = 60
	s.ManualReviewThreshold = 70

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, dErrors.FieldsOf(err), "manual_review_threshold")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	s := Defaults(testTenantID())
	s.AutoApproveThreshold = 40
	s.MaxAttempts = 0
	s.Overrides.PhotoConsistency = f(1.5)

	err := s.Validate()
	require.Error(t, err)
	fields := dErrors.FieldsOf(err)
	assert.Contains(t, fields, "auto_approve_threshold")
	assert.Contains(t, fields, "max_attempts")
	assert.Contains(t, fields, "photo_consistency")
}

func TestValidate_OverrideRanges(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*ThresholdSet)
		valid bool
	}{
		{"face match production at bound", func(s *ThresholdSet) { s.Overrides.FaceMatchProduction = f(0.99) }, true},
		{"face match production below bound", func(s *ThresholdSet) { s.Overrides.FaceMatchProduction = f(0.5) }, false},
		{"liveness sandbox lenient", func(s *ThresholdSet) { s.Overrides.LivenessSandbox = f(0.10) }, true},
		{"cross validation too low", func(s *ThresholdSet) { s.Overrides.CrossValidation = f(0.1) }, false},
		{"quality floor in range", func(s *ThresholdSet) { s.Overrides.QualityFloor = f(0.6) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults(testTenantID())
			tt.apply(s)
			err := s.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestApply_PartialUpdateKeepsUnsetFields(t *testing.T) {
	s := Defaults(testTenantID())
	s.Overrides.CrossValidation = f(0.75)

	next := s.Apply(Update{
		AutoApproveThreshold: f(90),
		RequireBackOfID:      b(true),
	})

	assert.Equal(t, 90.0, next.AutoApproveThreshold)
	assert.True(t, next.RequireBackOfID)
	// Untouched fields survive.
	assert.Equal(t, 60.0, next.ManualReviewThreshold)
	assert.Equal(t, 0.75, *next.Overrides.CrossValidation)
	// The receiver is not mutated.
	assert.Equal(t, 85.0, s.AutoApproveThreshold)
}

func TestApply_OverrideMerge(t *testing.T) {
	s := Defaults(testTenantID())
	s.Overrides.QualityFloor = f(0.4)

	next := s.Apply(Update{
		Overrides: &TechnicalOverrides{FaceMatchProduction: f(0.9)},
		MaxAttempts: i(5),
	})

	assert.Equal(t, 0.9, *next.Overrides.FaceMatchProduction)
	assert.Equal(t, 0.4, *next.Overrides.QualityFloor)
	assert.Equal(t, 5, next.MaxAttempts)
}

func TestEquivalentTo_IgnoresBookkeeping(t *testing.T) {
	a := Defaults(testTenantID())
	b := Defaults(testTenantID())
	b.Version = 7
	b.UpdatedBy = "ops@example.com"

	assert.True(t, a.EquivalentTo(b))

	b.AutoApproveThreshold = 90
	assert.False(t, a.EquivalentTo(b))
}

// Override pointers are freshly allocated on every decode; equivalence must
// compare the pointed-to values, not the pointers.
func TestEquivalentTo_OverridesCompareByValue(t *testing.T) {
	a := Defaults(testTenantID())
	a.Overrides.CrossValidation = f(0.8)
	a.Overrides.QualityFloor = f(0.5)

	b := Defaults(testTenantID())
	b.Overrides.CrossValidation = f(0.8)
	b.Overrides.QualityFloor = f(0.5)

	assert.True(t, a.EquivalentTo(b))

	b.Overrides.QualityFloor = f(0.6)
	assert.False(t, a.EquivalentTo(b))

	b.Overrides.QualityFloor = nil
	assert.False(t, a.EquivalentTo(b))
}

func TestResolve_DerivationScalesWithAutoApprove(t *testing.T) {
	s := Defaults(testTenantID())

	// At the default knob of 85 the scale factor is (85-70)/25 = 0.6.
	eff := Resolve(s, false)
	assert.InDelta(t, 0.86, eff.FaceMatch, 0.0001)
	assert.InDelta(t, 0.79, eff.Liveness, 0.0001)

	// At 70 the scale bottoms out at the bases.
	s.AutoApproveThreshold = 70
	eff = Resolve(s, false)
	assert.InDelta(t, 0.80, eff.FaceMatch, 0.0001)
	assert.InDelta(t, 0.70, eff.Liveness, 0.0001)

	// At 95 and above the scale saturates.
	s.AutoApproveThreshold = 95
	top := Resolve(s, false)
	s.AutoApproveThreshold = 100
	saturated := Resolve(s, false)
	assert.Equal(t, top.FaceMatch, saturated.FaceMatch)
	assert.Equal(t, top.Liveness, saturated.Liveness)
	assert.InDelta(t, 0.90, top.FaceMatch, 0.0001)

	// Below 70 the scale clamps to zero rather than going negative.
	s.AutoApproveThreshold = 55
	floor := Resolve(s, false)
	assert.InDelta(t, 0.80, floor.FaceMatch, 0.0001)
}

func TestResolve_SandboxIsMoreLenient(t *testing.T) {
	s := Defaults(testTenantID())

	prod := Resolve(s, false)
	sandbox := Resolve(s, true)

	assert.Less(t, sandbox.FaceMatch, prod.FaceMatch)
	assert.Less(t, sandbox.Liveness, prod.Liveness)
}

func TestResolve_OverridesWinOverDerivation(t *testing.T) {
	s := Defaults(testTenantID())
	s.Overrides.FaceMatchProduction = f(0.95)
	s.Overrides.LivenessSandbox = f(0.25)
	s.Overrides.CrossValidation = f(0.8)

	prod := Resolve(s, false)
	assert.Equal(t, 0.95, prod.FaceMatch)
	assert.Equal(t, 0.8, prod.CrossValidation)

	sandbox := Resolve(s, true)
	assert.Equal(t, 0.25, sandbox.Liveness)
	// Face match sandbox has no override, so it still derives.
	assert.InDelta(t, 0.66, sandbox.FaceMatch, 0.0001)
}

func TestResolve_LivenessOptOutForcesLenientFloors(t *testing.T) {
	s := Defaults(testTenantID())
	s.RequireLiveness = false
	// Even an explicit override loses to the opt-out.
	s.Overrides.LivenessProduction = f(0.9)

	assert.Equal(t, lenientLivenessProd, Resolve(s, false).Liveness)
	assert.Equal(t, lenientLivenessSandbox, Resolve(s, true).Liveness)
}

func TestResolve_DefaultsForUntouchedTechnicalThresholds(t *testing.T) {
	eff := Resolve(Defaults(testTenantID()), false)

	assert.Equal(t, defaultPhotoConsistency, eff.PhotoConsistency)
	assert.Equal(t, defaultCrossValidation, eff.CrossValidation)
	assert.Equal(t, defaultQualityFloor, eff.QualityFloor)
	assert.Equal(t, defaultOCRConfidence, eff.OCRConfidenceFloor)
	assert.Equal(t, defaultBarcodeConfidence, eff.BarcodeConfidenceFloor)
}

// Raising the auto-approve knob must never loosen a derived threshold.
func TestResolve_DerivationIsMonotonic(t *testing.T) {
	s := Defaults(testTenantID())

	for _, sandbox := range []bool{false, true} {
		prevFace, prevLiveness := -1.0, -1.0
		for knob := 50.0; knob <= 100.0; knob += 0.5 {
			s.AutoApproveThreshold = knob
			eff := Resolve(s, sandbox)
			assert.GreaterOrEqual(t, eff.FaceMatch, prevFace, "face match regressed at knob %.1f (sandbox=%v)", knob, sandbox)
			assert.GreaterOrEqual(t, eff.Liveness, prevLiveness, "liveness regressed at knob %.1f (sandbox=%v)", knob, sandbox)
			prevFace, prevLiveness = eff.FaceMatch, eff.Liveness
		}
	}
}
