package domain

import "time"

// Job is one resume-generation request decoded from a queue delivery. It lives
// only for the lifetime of that delivery; a redelivered message reconstructs an
// equivalent Job from the same payload.
type Job struct {
	JobID          string         `json:"jobId"`
	UserID         string         `json:"userId"`
	JobDescription string         `json:"jobDescription"`
	UserName       string         `json:"userName,omitempty"`
	UserEmail      string         `json:"userEmail,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Section identifies a category of resume content with its own enrichment and
// validation rules.
type Section string

const (
	SectionExperience Section = "experience"
	SectionProject    Section = "project"
	SectionPost       Section = "post"
	SectionWriting    Section = "writing"
	SectionDesign     Section = "design"
)

// Sections lists all known sections in assembly order.
var Sections = []Section{
	SectionExperience,
	SectionProject,
	SectionPost,
	SectionWriting,
	SectionDesign,
}

// EnhancementStatus records the outcome of one enrichment attempt.
type EnhancementStatus string

const (
	EnhancementSuccess EnhancementStatus = "success"
	EnhancementFailed  EnhancementStatus = "failed"
	EnhancementSkipped EnhancementStatus = "skipped"
)

// Enhancement is the per-item side channel attached by the enricher and
// consumed (and stripped) by the payload assembler. It is created once per
// enrichment attempt and never mutated afterward. It must not leak into the
// payload sent to the render service.
type Enhancement struct {
	Status          EnhancementStatus
	Validated       bool
	LengthOriginal  int
	LengthOptimized int
	TokensUsed      int
	Model           string
	Language        string
	Timestamp       time.Time
	Error           string
}

// Item is one content-bearing entity flowing through enrichment and assembly.
// Kind tags which entity it is; the shared fields cover everything the
// pipeline needs (posts carry no Period, experiences carry no Tags, both stay
// zero-valued). Optimized and Enhancement are the enrichment side channel.
type Item struct {
	Kind     Section
	Title    string
	Subtitle string
	Period   string
	Content  string
	Tags     []string
	URL      string

	Optimized   string
	Enhancement *Enhancement
}

// SourceData groups the records fetched from the upstream databases for one
// job, keyed by entity kind.
type SourceData struct {
	Experiences []Item
	Projects    []Item
	Posts       []Item
	Writings    []Item
	Designs     []Item
}

// BySection returns the item slice for a section.
func (s *SourceData) BySection(section Section) []Item {
	switch section {
	case SectionExperience:
		return s.Experiences
	case SectionProject:
		return s.Projects
	case SectionPost:
		return s.Posts
	case SectionWriting:
		return s.Writings
	case SectionDesign:
		return s.Designs
	}
	return nil
}

// SetSection replaces the item slice for a section.
func (s *SourceData) SetSection(section Section, items []Item) {
	switch section {
	case SectionExperience:
		s.Experiences = items
	case SectionProject:
		s.Projects = items
	case SectionPost:
		s.Posts = items
	case SectionWriting:
		s.Writings = items
	case SectionDesign:
		s.Designs = items
	}
}

// UserProfile is the identity record resolved from the job payload or the
// auth database.
type UserProfile struct {
	FirstName string
	LastName  string
	Email     string
}
