package base

// QueryParams is shared by the search and lookup tools
type QueryParams struct {
	Query string `json:"query" schema:"required,min:1" description:"The search query"`
}

// PromptParams is shared by the backend and consensus tools
type PromptParams struct {
	Prompt string `json:"prompt" schema:"required,min:1" description:"The prompt to send"`
}

// NoParams is used by tools that take no arguments
type NoParams struct{}
