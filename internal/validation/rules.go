package validation

import "github.com/cvpipe/resume-worker/internal/domain"

// DefaultLanguage is used when a rule set or phrase list has no entry for the
// requested language.
const DefaultLanguage = "en"

// defaultForbidden lists phrases that must never appear in generated resume
// content, per language.
var defaultForbidden = map[string][]string{
	"en": {
		"lorem ipsum",
		"as an ai",
		"i cannot",
		"i'm sorry",
		"placeholder",
		"[insert",
	},
	"pt": {
		"lorem ipsum",
		"como uma ia",
		"não posso",
		"desculpe",
		"placeholder",
		"[inserir",
	},
}

// forbiddenPhrases resolves the effective forbidden-phrase list: a caller
// override wins, otherwise the language default (falling back to English).
func forbiddenPhrases(rules Rules) []string {
	if len(rules.ForbiddenPhrases) > 0 {
		return rules.ForbiddenPhrases
	}
	if phrases, ok := defaultForbidden[rules.Language]; ok {
		return phrases
	}
	return defaultForbidden[DefaultLanguage]
}

type rulesKey struct {
	section  domain.Section
	language string
}

// sectionRules is the static default rule table per (section, language).
// Experience entries are expected as bullet lists; everything else is prose.
var sectionRules = map[rulesKey]Rules{
	{domain.SectionExperience, "en"}: {
		MinLength:      100,
		MaxLength:      800,
		RequiredFormat: FormatBullet,
		BulletPoints:   &BulletRange{Min: 2, Max: 6},
	},
	{domain.SectionExperience, "pt"}: {
		MinLength:      100,
		MaxLength:      800,
		RequiredFormat: FormatBullet,
		BulletPoints:   &BulletRange{Min: 2, Max: 6},
	},
	{domain.SectionProject, "en"}: {
		MinLength:      50,
		MaxLength:      500,
		RequiredFormat: FormatProse,
	},
	{domain.SectionProject, "pt"}: {
		MinLength:      50,
		MaxLength:      500,
		RequiredFormat: FormatProse,
	},
	{domain.SectionPost, "en"}: {
		MinLength:      50,
		MaxLength:      500,
		RequiredFormat: FormatProse,
	},
	{domain.SectionPost, "pt"}: {
		MinLength:      50,
		MaxLength:      500,
		RequiredFormat: FormatProse,
	},
	{domain.SectionWriting, "en"}: {
		MinLength:      50,
		MaxLength:      600,
		RequiredFormat: FormatProse,
	},
	{domain.SectionWriting, "pt"}: {
		MinLength:      50,
		MaxLength:      600,
		RequiredFormat: FormatProse,
	},
	{domain.SectionDesign, "en"}: {
		MinLength:      50,
		MaxLength:      600,
		RequiredFormat: FormatProse,
	},
	{domain.SectionDesign, "pt"}: {
		MinLength:      50,
		MaxLength:      600,
		RequiredFormat: FormatProse,
	},
}

// RulesForSection returns the default rule set for a (section, language)
// pair. Missing languages fall back to English; unknown sections yield an
// empty rule set, which accepts any non-empty content.
func RulesForSection(section domain.Section, language string) Rules {
	if rules, ok := sectionRules[rulesKey{section, language}]; ok {
		rules.Language = language
		return rules
	}
	if rules, ok := sectionRules[rulesKey{section, DefaultLanguage}]; ok {
		rules.Language = language
		return rules
	}
	return Rules{Language: language}
}
