package validation

import (
	"fmt"
	"strings"
)

// Severity classifies a validation issue. Only error-severity issues block
// validity; warnings are advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeEmptyContent    = "EMPTY_CONTENT"
	CodeTooShort        = "TOO_SHORT"
	CodeTooLong         = "TOO_LONG"
	CodeForbiddenPhrase = "FORBIDDEN_PHRASE"
	CodeWrongFormat     = "WRONG_FORMAT"
	CodeBulletCount     = "BULLET_COUNT"
)

// Format is the detected or required layout of a piece of content.
type Format string

const (
	FormatBullet Format = "bullet"
	FormatMixed  Format = "mixed"
	FormatProse  Format = "prose"
)

// BulletRange bounds the number of bullet lines.
type BulletRange struct {
	Min int
	Max int
}

// Rules describes what makes a piece of generated content acceptable. Zero
// fields are not checked; a zero Rules accepts any non-empty content.
type Rules struct {
	MinLength        int
	MaxLength        int
	RequiredFormat   Format
	BulletPoints     *BulletRange
	ForbiddenPhrases []string
	RequiredKeywords []string
	Language         string
}

// Issue is a single validation finding.
type Issue struct {
	Code     string
	Message  string
	Severity Severity
}

// Metadata carries measurements taken during validation.
type Metadata struct {
	Length       int
	BulletPoints int
	Format       Format
	ReadingTime  int
}

// Result is the outcome of validating one piece of content. Valid is true iff
// no issue has error severity.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []string
	Metadata Metadata
}

// readingRate is the unit-per-reading-time divisor used for the estimate.
const readingRate = 200

// Validate scores content against rules. Pure function: no side effects.
func Validate(content string, rules Rules) Result {
	if strings.TrimSpace(content) == "" {
		return Result{
			Valid: false,
			Errors: []Issue{{
				Code:     CodeEmptyContent,
				Message:  "content is empty",
				Severity: SeverityError,
			}},
		}
	}

	var errs []Issue
	var warnings []string

	length := len(content)
	bullets := countBulletLines(content)
	format := detectFormat(content)

	if rules.MinLength > 0 && length < rules.MinLength {
		errs = append(errs, Issue{
			Code:     CodeTooShort,
			Message:  fmt.Sprintf("content length %d is below minimum %d", length, rules.MinLength),
			Severity: SeverityError,
		})
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		errs = append(errs, Issue{
			Code:     CodeTooLong,
			Message:  fmt.Sprintf("content length %d exceeds maximum %d", length, rules.MaxLength),
			Severity: SeverityError,
		})
	}

	lowered := strings.ToLower(content)
	for _, phrase := range forbiddenPhrases(rules) {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			errs = append(errs, Issue{
				Code:     CodeForbiddenPhrase,
				Message:  fmt.Sprintf("content contains forbidden phrase %q", phrase),
				Severity: SeverityError,
			})
		}
	}

	switch rules.RequiredFormat {
	case FormatBullet:
		if bullets == 0 {
			errs = append(errs, Issue{
				Code:     CodeWrongFormat,
				Message:  "bullet format required but no bullet lines detected",
				Severity: SeverityError,
			})
		}
	case FormatProse:
		if format == FormatBullet {
			warnings = append(warnings, "prose format requested but content is bullet-formatted")
		}
	}

	if rules.BulletPoints != nil {
		if bullets < rules.BulletPoints.Min || bullets > rules.BulletPoints.Max {
			errs = append(errs, Issue{
				Code:     CodeBulletCount,
				Message:  fmt.Sprintf("bullet count %d outside allowed range %d-%d", bullets, rules.BulletPoints.Min, rules.BulletPoints.Max),
				Severity: SeverityError,
			})
		}
	}

	for _, keyword := range rules.RequiredKeywords {
		if !strings.Contains(lowered, strings.ToLower(keyword)) {
			warnings = append(warnings, fmt.Sprintf("missing keyword %q", keyword))
		}
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
		Metadata: Metadata{
			Length:       length,
			BulletPoints: bullets,
			Format:       format,
			ReadingTime:  (length + readingRate - 1) / readingRate,
		},
	}
}

// FirstError returns the message of the first error-severity issue, or "".
func (r Result) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// isBulletLine reports whether a line starts with a bullet marker, possibly
// after whitespace.
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "•") ||
		strings.HasPrefix(trimmed, "-") ||
		strings.HasPrefix(trimmed, "*")
}

func countBulletLines(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isBulletLine(line) {
			count++
		}
	}
	return count
}

// detectFormat classifies content by the ratio of bullet lines to non-blank
// lines: > 0.7 bullet, > 0.3 mixed, otherwise prose.
func detectFormat(content string) Format {
	total := 0
	bullets := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if isBulletLine(line) {
			bullets++
		}
	}
	if total == 0 {
		return FormatProse
	}

	ratio := float64(bullets) / float64(total)
	switch {
	case ratio > 0.7:
		return FormatBullet
	case ratio > 0.3:
		return FormatMixed
	default:
		return FormatProse
	}
}
