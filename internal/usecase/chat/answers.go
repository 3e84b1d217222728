package chat

// Answers returned instead of generated text.
const (
	NoDocumentsAnswer = "I notice you're asking about specific information, but no documents have been uploaded yet. " +
		"Please upload some PDF documents so I can assist you better."
	NoResultsAnswer = "I couldn't find any passages in the indexed documents that relate to your question. " +
		"Try rephrasing it or upload the relevant documents."
	CredentialsAnswer = "I couldn't reach the language model because the API credentials were rejected. " +
		"Please check the configured API keys."
	FailureAnswer = "I found relevant passages but couldn't generate an answer right now. Please try again in a moment."
)
