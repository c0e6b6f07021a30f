package model

// Settings describes which upstream models the server talks to and how.
type Settings struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
	MaxTokens   int
}

// ValidationResult is the body of a successful /analyze-image call. A nil Description means the image did not
// match the requested context.
type ValidationResult struct {
	Description *string `json:"description"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AddResponse struct {
	Result int `json:"result"`
}

type HaikuResponse struct {
	Haiku string `json:"haiku"`
}
