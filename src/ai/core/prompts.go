package core

const (
	DefaultSystemPrompt = "You are a helpful AI assistant. Provide concise and accurate answers."

	// InternetContextDirective shapes the prompt only; no search is performed.
	InternetContextDirective = "The user has requested information that may require external context. " +
		"Draw on broad general knowledge and clearly note when information may be out of date."

	SchemaDirective   = "Your response MUST be a JSON object conforming to this JSON schema:"
	JSONOnlyDirective = "Respond with the JSON object only, without markdown fences or commentary."
)
