package domain

// GenerateRequest is the content-generation contract consumed from the AI
// service.
type GenerateRequest struct {
	Type           string `json:"type"`
	JobDescription string `json:"jobDescription"`
	UserContext    string `json:"userContext"`
}

// GenerateResult is the AI service's response.
type GenerateResult struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokensUsed"`
	Model      string `json:"model"`
}

// RenderPayload is the document request sent to the render service. It
// carries no enrichment side-channel data; the assembler strips that before
// emitting the payload.
type RenderPayload struct {
	JobID          string           `json:"jobId"`
	Profile        PayloadProfile   `json:"profile"`
	JobDescription string           `json:"jobDescription,omitempty"`
	Experiences    []PayloadItem    `json:"experiences,omitempty"`
	Projects       []PayloadItem    `json:"projects,omitempty"`
	Posts          []PayloadItem    `json:"posts,omitempty"`
	Writings       []PayloadItem    `json:"writings,omitempty"`
	Designs        []PayloadItem    `json:"designs,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// PayloadProfile is the identity block of a render payload. Email is always a
// syntactically valid address; the assembler substitutes a placeholder when
// the source is absent or malformed.
type PayloadProfile struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email"`
}

// PayloadItem is one resume entry in the outbound payload. AIEnhanced is the
// only trace of enrichment that leaves the worker.
type PayloadItem struct {
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Period     string   `json:"period,omitempty"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	URL        string   `json:"url,omitempty"`
	AIEnhanced bool     `json:"aiEnhanced"`
}

// RenderResult is the render service's response. Exactly one of PDFURL and
// HTML is expected on success.
type RenderResult struct {
	PDFURL    string `json:"pdfUrl,omitempty"`
	HTML      string `json:"html,omitempty"`
	StatusURL string `json:"statusUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}
