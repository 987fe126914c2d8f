package enrich

import (
	"fmt"

	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/validation"
)

// instructionFunc builds the instruction string sent to the AI service for
// one item. Registered per (section, language) so adding a language is a data
// change, not a code change.
type instructionFunc func(jobDescription, content string) string

type templateKey struct {
	section  domain.Section
	language string
}

var instructionTemplates = map[templateKey]instructionFunc{
	{domain.SectionExperience, "en"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Rewrite this work experience as 2-6 concise bullet points tailored to the following job description. Keep it factual, lead with impact.\n\nJob description:\n%s\n\nExperience:\n%s",
			jd, content)
	},
	{domain.SectionExperience, "pt"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Reescreva esta experiência profissional em 2-6 tópicos concisos, alinhados à vaga a seguir. Seja factual e destaque o impacto.\n\nDescrição da vaga:\n%s\n\nExperiência:\n%s",
			jd, content)
	},
	{domain.SectionProject, "en"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Rewrite this project description as one short paragraph highlighting the skills relevant to the job below. Do not invent technology that is not mentioned.\n\nJob description:\n%s\n\nProject:\n%s",
			jd, content)
	},
	{domain.SectionProject, "pt"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Reescreva esta descrição de projeto em um parágrafo curto, destacando as habilidades relevantes para a vaga abaixo. Não invente tecnologias.\n\nDescrição da vaga:\n%s\n\nProjeto:\n%s",
			jd, content)
	},
	{domain.SectionPost, "en"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Summarize this blog post in one short paragraph that shows expertise relevant to the job below.\n\nJob description:\n%s\n\nPost:\n%s",
			jd, content)
	},
	{domain.SectionPost, "pt"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Resuma esta publicação em um parágrafo curto que demonstre conhecimento relevante para a vaga abaixo.\n\nDescrição da vaga:\n%s\n\nPublicação:\n%s",
			jd, content)
	},
	{domain.SectionWriting, "en"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Condense this technical writing sample into one paragraph emphasizing depth relevant to the job below.\n\nJob description:\n%s\n\nWriting:\n%s",
			jd, content)
	},
	{domain.SectionDesign, "en"}: func(jd, content string) string {
		return fmt.Sprintf(
			"Condense this system design summary into one paragraph emphasizing architecture decisions relevant to the job below.\n\nJob description:\n%s\n\nDesign:\n%s",
			jd, content)
	},
}

// instructionFor resolves the template for a section, falling back to the
// default language when the requested one is not registered.
func instructionFor(section domain.Section, language string) (instructionFunc, bool) {
	if fn, ok := instructionTemplates[templateKey{section, language}]; ok {
		return fn, true
	}
	fn, ok := instructionTemplates[templateKey{section, validation.DefaultLanguage}]
	return fn, ok
}
