package chat

// Response carries the generated text.
type Response struct {
	Response string `json:"response" doc:"Generated reply" example:"Hello! How can I help you today?"`
}

// Output is the chat operation output.
type Output struct {
	Body Response
}
