package extraction

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"idswyft/internal/verification/models"
)

// ErrExtractionFailed is returned when no strategy produced text above the
// minimal usefulness floor.
var ErrExtractionFailed = errors.New("no extraction strategy produced usable text")

const (
	// usefulnessFloor is the minimal composite text score a strategy must
	// clear for its output to be considered at all.
	usefulnessFloor = 0.1

	// Early-exit thresholds: a result this good stops the strategy loop.
	goodEnoughScore      = 0.8
	goodEnoughConfidence = 75.0
	goodEnoughLength     = 100
)

// Extractor runs the ordered strategy list against the recognizer port and
// parses the best raw text into typed fields.
type Extractor struct {
	recognizer TextRecognizer
	strategies []Strategy
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithStrategies overrides the default strategy order. Used by tests and by
// tenants with document-specific recognition tuning.
func WithStrategies(strategies []Strategy) Option {
	return func(e *Extractor) {
		if len(strategies) > 0 {
			e.strategies = strategies
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

func New(recognizer TextRecognizer, opts ...Option) (*Extractor, error) {
	if recognizer == nil {
		return nil, errors.New("text recognizer is required")
	}
	e := &Extractor{
		recognizer: recognizer,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// attempt is one strategy's scored result.
type attempt struct {
	strategy   Strategy
	text       string
	confidence float64
	score      float64
}

// Extract tries each strategy in order, keeps the best-scoring text, and
// parses it into fields for the document type. Strategies run sequentially:
// the recognizer is expensive and the list is ordered so the early exit
// usually fires before the tail is reached.
func (e *Extractor) Extract(ctx context.Context, image []byte, docType models.DocumentType) (*models.ExtractedFields, error) {
	var best attempt

	for _, strategy := range e.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prepared, err := preprocess(image, strategy.Preprocess)
		if err != nil {
			// Fall back to raw bytes; the recognizer may still cope.
			e.logger.WarnContext(ctx, "preprocessing failed",
				"strategy", strategy.Name,
				"error", err,
			)
			prepared = image
		}

		rec, err := e.recognizer.Recognize(ctx, prepared, strategy.Mode)
		if err != nil {
			e.logger.WarnContext(ctx, "recognition failed",
				"strategy", strategy.Name,
				"error", err,
			)
			continue
		}

		score := ScoreText(rec.Text)
		if score > best.score || (score == best.score && rec.Confidence > best.confidence) {
			best = attempt{strategy: strategy, text: rec.Text, confidence: rec.Confidence, score: score}
		}

		if score >= goodEnoughScore && rec.Confidence > goodEnoughConfidence && len(strings.TrimSpace(rec.Text)) > goodEnoughLength {
			break
		}
	}

	if best.score < usefulnessFloor {
		return nil, ErrExtractionFailed
	}

	fields := parseFields(best.text, docType, best.confidence)
	e.logger.DebugContext(ctx, "extraction complete",
		"strategy", best.strategy.Name,
		"text_score", best.score,
		"confidence", best.confidence,
	)
	return fields, nil
}

var (
	dateLikeRe      = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)
	uppercaseRunsRe = regexp.MustCompile(`\b[A-Z]{2,}(?:\s+[A-Z]{2,})+\b`)
)

// ScoreText rates a raw recognition blob on a 0-1 scale using cheap
// structural heuristics: longer, wordier, more varied text that contains
// dates and uppercase name runs is more likely to be a readable document.
func ScoreText(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	var score float64

	switch n := len(trimmed); {
	case n > 100:
		score += 0.3
	case n > 50:
		score += 0.2
	case n > 20:
		score += 0.1
	}

	switch words := len(strings.Fields(trimmed)); {
	case words > 20:
		score += 0.3
	case words > 10:
		score += 0.2
	}

	switch variety := distinctChars(trimmed); {
	case variety > 30:
		score += 0.2
	case variety > 15:
		score += 0.1
	}

	if dateLikeRe.MatchString(trimmed) {
		score += 0.1
	}
	if uppercaseRunsRe.MatchString(trimmed) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func distinctChars(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
