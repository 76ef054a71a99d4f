package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/gemini-chat-relay/internal/http/v1/chat"
	"github.com/janisto/gemini-chat-relay/internal/platform/respond"
	"github.com/janisto/gemini-chat-relay/internal/service/gemini"
)

// Title is the OpenAPI document title.
const Title = "Gemini Chat Relay API"

// NewConfig returns the Huma configuration shared by the server and its tests.
func NewConfig(version string) huma.Config {
	cfg := huma.DefaultConfig(Title, version)
	cfg.DocsPath = "/api-docs"
	// Bodies are bare {"response"} / {"error"} objects, so no $schema link is injected.
	cfg.CreateHooks = nil
	return cfg
}

// NewAPI mounts a Huma API on router. Error rendering is installed first so that
// every registered operation reports failures as {"error": "..."}.
func NewAPI(router chi.Router, version string) huma.API {
	respond.Install()
	api := humachi.New(router, NewConfig(version))

	// Add CBOR content type to OpenAPI requests and responses
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)
	return api
}

// Register wires all HTTP operations into the provided API.
func Register(api huma.API, svc gemini.Service) {
	chat.Register(api, svc)
}

func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
