package assemble

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cvpipe/resume-worker/internal/domain"
)

// Per-field truncation caps, in bytes. Truncation is a hard left-anchored
// substring, not word-boundary aware.
const (
	CapJobDescription = 2000
	CapLongText       = 800
	CapShortText      = 500
	CapMetadataValue  = 1000
	CapEmail          = 200
	CapTitle          = 50
	CapName           = 100
)

// PlaceholderEmail is substituted when the source email is absent or
// malformed; the render service's schema requires a well-formed address.
const PlaceholderEmail = "unknown@resume.local"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Stats aggregates enrichment bookkeeping for the outbound metadata block.
type Stats struct {
	EnabledSections []string
	TokensUsed      int
	Duration        time.Duration
}

// Truncate returns s cut to at most max bytes.
func Truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// SelectOptimalContent picks the optimized text iff its enhancement succeeded
// and validated, otherwise the raw field; the chosen value is truncated to
// max either way. The boolean reports whether the AI variant was used.
func SelectOptimalContent(item domain.Item, max int) (string, bool) {
	if item.Optimized != "" && item.Enhancement != nil &&
		item.Enhancement.Status == domain.EnhancementSuccess && item.Enhancement.Validated {
		return Truncate(item.Optimized, max), true
	}
	return Truncate(item.Content, max), false
}

// SanitizeEmail returns email when it is syntactically valid, otherwise the
// placeholder.
func SanitizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return PlaceholderEmail
	}
	return Truncate(email, CapEmail)
}

// contentCap returns the truncation cap for a section's content field.
func contentCap(section domain.Section) int {
	switch section {
	case domain.SectionExperience:
		return CapLongText
	default:
		return CapShortText
	}
}

func payloadItems(section domain.Section, items []domain.Item) []domain.PayloadItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.PayloadItem, 0, len(items))
	for _, item := range items {
		content, enhanced := SelectOptimalContent(item, contentCap(section))
		out = append(out, domain.PayloadItem{
			Title:      Truncate(item.Title, CapShortText),
			Subtitle:   Truncate(item.Subtitle, CapShortText),
			Period:     Truncate(item.Period, CapTitle),
			Content:    content,
			Tags:       item.Tags,
			URL:        Truncate(item.URL, CapShortText),
			AIEnhanced: enhanced,
		})
	}
	return out
}

// Assemble merges raw and AI-enhanced fields into the render payload. The
// enrichment side channel is consumed here and never emitted; only the
// derived aiEnhanced flag survives per item. Pure function.
func Assemble(job domain.Job, data domain.SourceData, profile *domain.UserProfile, stats *Stats) domain.RenderPayload {
	payload := domain.RenderPayload{
		JobID:          job.JobID,
		JobDescription: Truncate(job.JobDescription, CapJobDescription),
		Profile:        assembleProfile(job, profile),
		Experiences:    payloadItems(domain.SectionExperience, data.Experiences),
		Projects:       payloadItems(domain.SectionProject, data.Projects),
		Posts:          payloadItems(domain.SectionPost, data.Posts),
		Writings:       payloadItems(domain.SectionWriting, data.Writings),
		Designs:        payloadItems(domain.SectionDesign, data.Designs),
	}

	metadata := map[string]any{}
	for key, value := range job.Metadata {
		if s, ok := value.(string); ok {
			metadata[key] = Truncate(s, CapMetadataValue)
			continue
		}
		metadata[key] = value
	}
	if stats != nil {
		metadata["enrichment"] = map[string]any{
			"enabledSections": stats.EnabledSections,
			"tokensUsed":      stats.TokensUsed,
			"durationMs":      stats.Duration.Milliseconds(),
		}
	}
	if len(metadata) > 0 {
		payload.Metadata = metadata
	}

	return payload
}

func assembleProfile(job domain.Job, profile *domain.UserProfile) domain.PayloadProfile {
	name := strings.TrimSpace(job.UserName)
	email := job.UserEmail
	if profile != nil {
		if name == "" {
			name = strings.TrimSpace(fmt.Sprintf("%s %s", profile.FirstName, profile.LastName))
		}
		if email == "" {
			email = profile.Email
		}
	}
	if name == "" {
		name = "Resume Candidate"
	}
	return domain.PayloadProfile{
		Name:  Truncate(name, CapName),
		Email: SanitizeEmail(email),
	}
}
