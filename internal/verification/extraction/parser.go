package extraction

import (
	"regexp"
	"strings"

	"idswyft/internal/verification/models"
)

// Document-type-specific pattern sets. Driver's licenses carry explicit
// field labels; passports use their own labels; the generic set scrapes
// anything name-like or date-like. Fields that never match stay empty —
// partial extraction is a valid outcome.
var (
	datePattern = `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})`

	dlDOBRe    = regexp.MustCompile(`(?i)\b(?:DOB|DATE OF BIRTH|BIRTH\s*DATE)\b[:.\s]*` + datePattern)
	dlExpRe    = regexp.MustCompile(`(?i)\b(?:EXP(?:IRES|IRATION)?)\b[:.\s]*` + datePattern)
	dlNumberRe = regexp.MustCompile(`(?i)\b(?:DL|LIC|ID)\s*(?:NO|NUMBER|#)?\b[:.\s]*([A-Z0-9]{4,15})\b`)

	passportNameRe   = regexp.MustCompile(`(?i)\b(?:NAME|SURNAME|GIVEN NAMES?)\b[:.\s]*([A-Z][A-Za-z'\- ]+)`)
	// Label matches case-insensitively, the number itself must be uppercase
	// so a following header word is never captured.
	passportNumberRe = regexp.MustCompile(`(?i:\bPASSPORT\s*(?:NO|NUMBER|#)?\b)[:.\s]*([A-Z0-9]{6,9})\b`)
	nationalityRe    = regexp.MustCompile(`(?i)\bNATIONALITY\b[:.\s]*([A-Za-z ]+)`)
	passportDOBRe    = regexp.MustCompile(`(?i)\bDATE OF BIRTH\b[:.\s]*` + datePattern)
	passportExpRe    = regexp.MustCompile(`(?i)\bDATE OF EXPIRY\b[:.\s]*` + datePattern)

	addressRe = regexp.MustCompile(`(?i)\b(?:ADDRESS|ADDR)\b[:.\s]*(.+)`)

	genericNameRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	genericDateRe = regexp.MustCompile(`\b` + datePattern + `\b`)

	// Words that disqualify a line from being the positional name guess.
	dlNoiseWords = []string{"LICENSE", "DRIVER", "STATE", "IDENTIFICATION", "CARD", "DOB", "EXP", "CLASS", "SEX", "HGT", "EYES"}
)

// parseFields parses the best raw text into typed fields using the pattern
// set for the document type. The recognizer confidence (0-100) seeds the
// per-field confidence scores.
func parseFields(text string, docType models.DocumentType, confidence float64) *models.ExtractedFields {
	fields := &models.ExtractedFields{
		RawText:          text,
		ConfidenceScores: map[string]float64{},
	}

	fieldConfidence := confidence / 100
	if fieldConfidence > 1 {
		fieldConfidence = 1
	}
	if fieldConfidence < 0 {
		fieldConfidence = 0
	}

	switch docType {
	case models.DocTypeDriversLicense:
		parseDriversLicense(text, fields)
	case models.DocTypePassport:
		parsePassport(text, fields)
	default:
		parseGeneric(text, fields)
	}

	// Generic sweeps fill whatever the labeled patterns missed.
	if fields.Name == "" || fields.DateOfBirth == "" {
		fallback := &models.ExtractedFields{ConfidenceScores: map[string]float64{}}
		parseGeneric(text, fallback)
		if fields.Name == "" {
			fields.Name = fallback.Name
		}
		if fields.DateOfBirth == "" {
			fields.DateOfBirth = fallback.DateOfBirth
		}
		if fields.ExpirationDate == "" {
			fields.ExpirationDate = fallback.ExpirationDate
		}
	}

	for _, f := range []struct {
		key   string
		value string
	}{
		{"name", fields.Name},
		{"document_number", fields.DocumentNumber},
		{"date_of_birth", fields.DateOfBirth},
		{"expiration_date", fields.ExpirationDate},
		{"nationality", fields.Nationality},
		{"address", fields.Address},
	} {
		if f.value != "" {
			fields.ConfidenceScores[f.key] = fieldConfidence
		}
	}
	return fields
}

func parseDriversLicense(text string, fields *models.ExtractedFields) {
	if m := dlDOBRe.FindStringSubmatch(text); m != nil {
		fields.DateOfBirth = m[1]
	}
	if m := dlExpRe.FindStringSubmatch(text); m != nil {
		fields.ExpirationDate = m[1]
	}
	for _, m := range dlNumberRe.FindAllStringSubmatch(text, -1) {
		// License numbers carry at least one digit; skip captured words.
		if strings.ContainsAny(m[1], "0123456789") {
			fields.DocumentNumber = strings.ToUpper(m[1])
			break
		}
	}
	if m := addressRe.FindStringSubmatch(text); m != nil {
		fields.Address = strings.TrimSpace(m[1])
	}
	fields.Name = positionalName(text)
}

func parsePassport(text string, fields *models.ExtractedFields) {
	if m := passportNameRe.FindStringSubmatch(text); m != nil {
		fields.Name = strings.TrimSpace(m[1])
	}
	for _, m := range passportNumberRe.FindAllStringSubmatch(text, -1) {
		// Passport numbers carry at least one digit; skip captured words.
		if strings.ContainsAny(m[1], "0123456789") {
			fields.DocumentNumber = m[1]
			break
		}
	}
	if m := nationalityRe.FindStringSubmatch(text); m != nil {
		fields.Nationality = strings.TrimSpace(m[1])
	}
	if m := passportDOBRe.FindStringSubmatch(text); m != nil {
		fields.DateOfBirth = m[1]
	}
	if m := passportExpRe.FindStringSubmatch(text); m != nil {
		fields.ExpirationDate = m[1]
	}
}

func parseGeneric(text string, fields *models.ExtractedFields) {
	if m := genericNameRe.FindStringSubmatch(text); m != nil {
		fields.Name = m[1]
	}
	dates := genericDateRe.FindAllString(text, 2)
	if len(dates) > 0 {
		fields.DateOfBirth = dates[0]
	}
	if len(dates) > 1 {
		fields.ExpirationDate = dates[1]
	}
}

// positionalName guesses the holder name on documents without a name label:
// the first line made of two or more uppercase alphabetic words that is not
// a known header or field line.
func positionalName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsAny(line, "0123456789") {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if !allUppercaseAlpha(words) {
			continue
		}
		if containsNoiseWord(line) {
			continue
		}
		return line
	}
	return ""
}

func allUppercaseAlpha(words []string) bool {
	for _, w := range words {
		for _, r := range w {
			if (r < 'A' || r > 'Z') && r != '\'' && r != '-' {
				return false
			}
		}
	}
	return true
}

func containsNoiseWord(line string) bool {
	upper := strings.ToUpper(line)
	for _, noise := range dlNoiseWords {
		if strings.Contains(upper, noise) {
			return true
		}
	}
	return false
}
