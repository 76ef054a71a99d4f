package chat

// Request is the chat request payload. Unknown fields are accepted and ignored.
type Request struct {
	_       struct{} `json:"-" additionalProperties:"true"`
	Message string   `json:"message,omitempty" required:"false" doc:"User message to relay" example:"Hello, Gemini!"`
}

// Input is the chat operation input. The body is optional so that an absent or
// null body reaches the handler and is reported as a missing message.
type Input struct {
	Body *Request `required:"false"`
}
