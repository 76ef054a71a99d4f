package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/gemini-chat-relay/internal/platform/logging"
	"github.com/janisto/gemini-chat-relay/internal/platform/metrics"
	"github.com/janisto/gemini-chat-relay/internal/platform/respond"
	"github.com/janisto/gemini-chat-relay/internal/service/gemini"
)

const operationID = "chat"

const (
	msgNoMessage     = "No message provided"
	prefixUpstream   = "Gemini API Error: "
	prefixUnexpected = "An unexpected error occurred: "
)

// Handler relays chat messages to a gemini.Service.
type Handler struct {
	svc gemini.Service
}

// Register wires the chat operation into the API.
func Register(api huma.API, svc gemini.Service) {
	h := &Handler{svc: svc}

	// Unreadable or undecodable bodies are reported as unexpected errors.
	respond.MapOperationErrors(operationID, decodeFailure)

	huma.Register(api, huma.Operation{
		OperationID: operationID,
		Method:      http.MethodPost,
		Path:        "/chat",
		Summary:     "Relay a message to Gemini",
		Description: "Sends the message to the configured Gemini model and returns the generated text.",
		Tags:        []string{"Chat"},
		// Body is decoded straight into Input so that null and empty bodies
		// reach the handler instead of failing object validation.
		SkipValidateBody: true,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, h.chat)
}

func (h *Handler) chat(ctx context.Context, input *Input) (*Output, error) {
	if input.Body == nil || input.Body.Message == "" {
		metrics.RecordChatRequest(metrics.OutcomeInvalid)
		return nil, respond.Error(ctx, http.StatusBadRequest, msgNoMessage)
	}

	gen, err := h.svc.Generate(ctx, []string{input.Body.Message})
	if err != nil {
		var upErr *gemini.UpstreamError
		if errors.As(err, &upErr) {
			metrics.RecordChatRequest(metrics.OutcomeUpstreamError)
			return nil, respond.Error(ctx, http.StatusInternalServerError, prefixUpstream+upErr.Message, err)
		}
		metrics.RecordChatRequest(metrics.OutcomeError)
		return nil, respond.Error(ctx, http.StatusInternalServerError, prefixUnexpected+err.Error(), err)
	}

	metrics.RecordChatRequest(metrics.OutcomeSuccess)
	applog.LogInfo(ctx, "chat relayed",
		zap.String("model", gen.Model),
		zap.Int("messageLength", len(input.Body.Message)),
		zap.Int("responseLength", len(gen.Text)),
	)
	return &Output{Body: Response{Response: gen.Text}}, nil
}

// decodeFailure maps framework errors on the chat operation (malformed or
// mistyped JSON, unsupported content type, oversized body) to a 500.
func decodeFailure(_ int, cause string) (int, string) {
	metrics.RecordChatRequest(metrics.OutcomeError)
	return http.StatusInternalServerError, prefixUnexpected + cause
}
