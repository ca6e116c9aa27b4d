// Package service orchestrates the verification decision pipeline:
// image quality, field extraction, cross-field consistency, face signals,
// and the final confidence decision against the tenant's thresholds.
//
// The pipeline is stateless per attempt. Stage failures never escape as Go
// errors: they are classified onto the outcome. Errors are reserved for
// caller mistakes (bad input) and infrastructure faults.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	thresholdmodels "idswyft/internal/threshold/models"
	"idswyft/internal/verification/crossval"
	"idswyft/internal/verification/extraction"
	verifmetrics "idswyft/internal/verification/metrics"
	"idswyft/internal/verification/models"
	"idswyft/internal/verification/outcome"
	"idswyft/internal/verification/quality"
	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
	"idswyft/pkg/platform/audit"
	"idswyft/pkg/requestcontext"
)

// ThresholdResolver supplies the effective thresholds for a tenant and mode.
type ThresholdResolver interface {
	Resolve(ctx context.Context, tenantID id.TenantID, sandbox bool) (thresholdmodels.EffectiveThresholds, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// BackOfIDFields is the structured output of a PDF417 barcode read of the
// document back, supplied by the capture pipeline.
type BackOfIDFields struct {
	FirstName      string
	LastName       string
	DocumentNumber string
	DateOfBirth    string
	ExpirationDate string
	Address        string
	// Confidence of the barcode read on a 0-1 scale.
	Confidence float64
}

// VerifyRequest is the domain input for one verification attempt.
type VerifyRequest struct {
	TenantID     id.TenantID
	DocumentType models.DocumentType
	FrontImage   []byte
	// BackImage is optional; when present and no structured barcode fields
	// were supplied, it goes through extraction like the front.
	BackImage []byte
	// BackFields take precedence over BackImage when both are present.
	BackFields *BackOfIDFields
	// Face carries collaborator-supplied face match and liveness outputs.
	Face    *models.FaceSignal
	Sandbox bool
}

// Service runs the verification pipeline.
type Service struct {
	thresholds ThresholdResolver
	analyzer   *quality.Analyzer
	extractor  *extraction.Extractor
	validator  *crossval.Validator

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *verifmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *verifmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(thresholds ThresholdResolver, extractor *extraction.Extractor, opts ...Option) (*Service, error) {
	if thresholds == nil {
		return nil, errors.New("verification service: threshold resolver is required")
	}
	if extractor == nil {
		return nil, errors.New("verification service: extractor is required")
	}
	s := &Service{
		thresholds: thresholds,
		analyzer:   quality.NewAnalyzer(),
		extractor:  extractor,
		validator:  crossval.New(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("idswyft/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify runs the full pipeline for one attempt and returns a terminal
// outcome. An error return means the attempt could not be evaluated at all
// (invalid input, threshold resolution failure, cancelled context); every
// evaluated attempt comes back as an outcome, failed ones included.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*models.VerificationOutcome, error) {
	start := time.Now()
	defer s.observeVerify(start)

	if req.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	if len(req.FrontImage) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document image is required")
	}

	eff, err := s.thresholds.Resolve(ctx, req.TenantID, req.Sandbox)
	if err != nil {
		return nil, err
	}

	out := &models.VerificationOutcome{
		ID:        id.NewVerificationID(),
		TenantID:  req.TenantID,
		Status:    models.StatusPending,
		Scores:    map[string]float64{},
		IsSandbox: req.Sandbox,
	}
	now := requestcontext.Now(ctx)

	ctx, span := s.tracer.Start(ctx, "verification.pipeline",
		trace.WithAttributes(
			attribute.String("verification.id", out.ID.String()),
			attribute.Bool("verification.sandbox", req.Sandbox),
			attribute.String("document.type", string(req.DocumentType)),
		))
	defer span.End()

	// Stage 1: image quality.
	report, verr := s.runQuality(ctx, req.FrontImage, eff, now)
	if verr != nil {
		s.incrementQualityReject()
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}
	out.Scores["quality"] = qualityScore(report.OverallQuality)
	out.Stage = models.StageQualityCheck

	// Stage 2: field extraction.
	front, verr := s.runExtraction(ctx, req.FrontImage, req.DocumentType, now)
	if verr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}
	out.Scores["ocr_confidence"] = ocrConfidence(front)
	out.Stage = models.StageExtraction

	// Back-of-ID source, structured barcode fields first.
	back, verr := s.resolveBackSource(ctx, req, eff, now)
	if verr != nil {
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}

	// Stage 3: cross-field consistency. Never errors.
	result := s.runCrossValidation(ctx, front, back, req.Face, eff)
	out.Scores["cross_validation"] = result.MatchScore
	out.Stage = models.StageCrossValidation

	if result.Discrepancies > 0 && !result.OverallConsistency {
		verr := outcome.NewError(models.KindDataInconsistency, models.StageCrossValidation,
			strings.Join(result.Notes, "; "), now)
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}
	if result.RequiresManualReview {
		verr := outcome.NewError(models.KindNoComparableData, models.StageCrossValidation,
			strings.Join(result.Notes, "; "), now)
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}

	// Stage 4: face signals, when the capture pipeline supplied them.
	if verr := s.checkFaceSignals(req.Face, eff, out, now); verr != nil {
		return s.finish(ctx, out, outcome.StatusForKind(verr.Kind), verr), nil
	}

	// Final decision against the tenant's confidence bands.
	composite := compositeScore(out.Scores["quality"], out.Scores["ocr_confidence"], result.MatchScore, req.Face)
	out.Scores["overall"] = composite

	status := decideStatus(composite, eff)
	switch status {
	case models.StatusManualReview:
		verr := outcome.NewError(models.KindPartialData, out.Stage,
			"confidence between review and approve bands", now)
		return s.finish(ctx, out, status, verr), nil
	case models.StatusFailed:
		verr := outcome.NewError(models.KindLowConfidence, out.Stage,
			"composite confidence below manual review band", now)
		return s.finish(ctx, out, models.StatusFailed, verr), nil
	default:
		return s.finish(ctx, out, models.StatusVerified, nil), nil
	}
}

func (s *Service) runQuality(ctx context.Context, image []byte, eff thresholdmodels.EffectiveThresholds, now time.Time) (*models.QualityReport, *models.VerificationError) {
	_, span := s.tracer.Start(ctx, "verification.quality_check")
	defer span.End()

	report, err := s.analyzer.Analyze(image)
	if err != nil {
		// Undecodable upload; the pipeline itself could not run.
		return nil, outcome.NewError(models.KindTechnicalProcessing, models.StageQualityCheck, err.Error(), now)
	}
	if qualityScore(report.OverallQuality) < eff.QualityFloor {
		kind := qualityFailureKind(report)
		return nil, outcome.NewError(kind, models.StageQualityCheck, strings.Join(report.Issues, "; "), now)
	}
	return report, nil
}

func (s *Service) runExtraction(ctx context.Context, image []byte, docType models.DocumentType, now time.Time) (*models.ExtractedFields, *models.VerificationError) {
	ctx, span := s.tracer.Start(ctx, "verification.extraction")
	defer span.End()
	start := time.Now()
	defer s.observeExtract(start)

	fields, err := s.extractor.Extract(ctx, image, docType)
	if err != nil {
		if errors.Is(err, extraction.ErrExtractionFailed) {
			return nil, outcome.NewError(models.KindOCRFailed, models.StageExtraction, err.Error(), now)
		}
		// Covers recognizer faults and context cancellation; the caller
		// rechecks ctx and propagates cancellation as a plain error.
		return nil, outcome.NewError(models.KindExtractionProcessing, models.StageExtraction, err.Error(), now)
	}
	return fields, nil
}

// resolveBackSource picks the back-of-ID field source: structured barcode
// fields above the tenant's confidence floor win; otherwise a supplied back
// image goes through extraction. An unusable back side only fails the
// attempt when the tenant requires one.
func (s *Service) resolveBackSource(ctx context.Context, req VerifyRequest, eff thresholdmodels.EffectiveThresholds, now time.Time) (*models.ExtractedFields, *models.VerificationError) {
	if req.BackFields != nil {
		if req.BackFields.Confidence >= eff.BarcodeConfidenceFloor {
			return barcodeToFields(req.BackFields), nil
		}
		s.logger.InfoContext(ctx, "barcode read below confidence floor, ignoring back fields",
			"confidence", req.BackFields.Confidence,
			"floor", eff.BarcodeConfidenceFloor,
		)
		if eff.RequireBackOfID {
			return nil, outcome.NewError(models.KindBarcodeFailed, models.StageExtraction,
				"barcode confidence below tenant floor", now)
		}
		return nil, nil
	}

	if len(req.BackImage) > 0 {
		fields, err := s.extractor.Extract(ctx, req.BackImage, req.DocumentType)
		if err != nil {
			s.logger.InfoContext(ctx, "back image extraction failed",
				"error", err,
			)
			if eff.RequireBackOfID {
				return nil, outcome.NewError(models.KindBarcodeFailed, models.StageExtraction, err.Error(), now)
			}
			return nil, nil
		}
		return fields, nil
	}

	if eff.RequireBackOfID {
		return nil, outcome.NewError(models.KindBarcodeFailed, models.StageExtraction,
			"tenant requires the document back and none was supplied", now)
	}
	return nil, nil
}

func (s *Service) runCrossValidation(ctx context.Context, front, back *models.ExtractedFields, face *models.FaceSignal, eff thresholdmodels.EffectiveThresholds) *models.ValidationResult {
	_, span := s.tracer.Start(ctx, "verification.cross_validation")
	defer span.End()
	return s.validator.Validate(front, back, face, eff.CrossValidation)
}

// checkFaceSignals enforces liveness and face-match thresholds on the
// collaborator-supplied signals. Absent signals skip the checks: face
// capture is optional at this layer.
func (s *Service) checkFaceSignals(face *models.FaceSignal, eff thresholdmodels.EffectiveThresholds, out *models.VerificationOutcome, now time.Time) *models.VerificationError {
	if face == nil {
		return nil
	}

	out.Scores["liveness"] = face.LivenessScore
	out.Stage = models.StageLiveness
	if eff.RequireLiveness && face.LivenessScore < eff.Liveness {
		return outcome.NewError(models.KindLivenessFailed, models.StageLiveness,
			"liveness score below tenant threshold", now)
	}

	if face.FaceDetected {
		out.Scores["face_match"] = face.MatchScore
		out.Stage = models.StageFaceMatch
		if face.MatchScore < eff.FaceMatch {
			return outcome.NewError(models.KindFaceNotMatching, models.StageFaceMatch,
				"face match score below tenant threshold", now)
		}
	}
	return nil
}

func barcodeToFields(b *BackOfIDFields) *models.ExtractedFields {
	name := strings.TrimSpace(strings.TrimSpace(b.FirstName) + " " + strings.TrimSpace(b.LastName))
	return &models.ExtractedFields{
		Name:           name,
		DocumentNumber: strings.TrimSpace(b.DocumentNumber),
		DateOfBirth:    strings.TrimSpace(b.DateOfBirth),
		ExpirationDate: strings.TrimSpace(b.ExpirationDate),
		Address:        strings.TrimSpace(b.Address),
	}
}

// finish stamps the terminal status, logs, meters, and emits audit events.
func (s *Service) finish(ctx context.Context, out *models.VerificationOutcome, status models.Status, verr *models.VerificationError) *models.VerificationOutcome {
	out.Status = status
	out.Error = verr
	if verr != nil {
		out.Stage = verr.Stage
	}

	logAttrs := []any{
		"verification_id", out.ID,
		"tenant_id", out.TenantID,
		"status", out.Status,
		"stage", out.Stage,
		"sandbox", out.IsSandbox,
		"request_id", requestcontext.RequestID(ctx),
	}
	if verr != nil {
		logAttrs = append(logAttrs, "failure_kind", verr.Kind, "detail", verr.Message)
	}
	s.logger.InfoContext(ctx, "verification decided", logAttrs...)

	s.meterDecision(out, verr)
	s.emitDecision(ctx, out, verr)
	return out
}

func (s *Service) meterDecision(out *models.VerificationOutcome, verr *models.VerificationError) {
	if s.metrics == nil {
		return
	}
	switch out.Status {
	case models.StatusVerified:
		s.metrics.Verified.Inc()
	case models.StatusManualReview:
		s.metrics.ManualReview.Inc()
	case models.StatusFailed:
		s.metrics.Failed.Inc()
	}
	if verr != nil && verr.IsFraudAlert {
		s.metrics.FraudAlerts.Inc()
	}
}

func (s *Service) emitDecision(ctx context.Context, out *models.VerificationOutcome, verr *models.VerificationError) {
	if s.auditPublisher == nil {
		return
	}
	base := audit.Event{
		Timestamp:      requestcontext.Now(ctx),
		TenantID:       out.TenantID,
		VerificationID: out.ID.String(),
		Decision:       string(out.Status),
		RequestID:      requestcontext.RequestID(ctx),
		Sandbox:        out.IsSandbox,
	}
	if verr != nil {
		base.Reason = string(verr.Kind)
	}

	decided := base
	decided.Action = string(audit.EventVerificationDecided)
	s.emit(ctx, decided)

	if verr == nil {
		return
	}
	switch {
	case verr.IsFraudAlert:
		event := base
		event.Action = string(audit.EventFraudAlertRaised)
		s.emit(ctx, event)
	case verr.RequiresManualReview:
		event := base
		event.Action = string(audit.EventManualReviewQueued)
		s.emit(ctx, event)
	case verr.AllowReupload:
		event := base
		event.Action = string(audit.EventReuploadRequested)
		s.emit(ctx, event)
	}
}

// emit publishes one audit event. Publish failures must not fail the
// already-decided attempt, but they are never silent: a decision missing
// from the audit trail is an incident.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"verification_id", event.VerificationID,
			"tenant_id", event.TenantID,
			"error", err,
		)
	}
}

func (s *Service) observeVerify(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveVerify(start)
	}
}

func (s *Service) observeExtract(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveExtract(start)
	}
}

func (s *Service) incrementQualityReject() {
	if s.metrics != nil {
		s.metrics.QualityRejects.Inc()
	}
}
