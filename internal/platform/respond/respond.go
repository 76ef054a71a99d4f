package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	applog "github.com/janisto/gemini-chat-relay/internal/platform/logging"
)

const (
	msgNotFound         = "resource not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternal         = "An unexpected error occurred: internal server error"
)

// ErrorBody is the payload of every non-2xx response: {"error": "..."}.
type ErrorBody struct {
	Message string `json:"error" doc:"Human-readable error description" example:"No message provided"`
	status  int
}

// Error implements the error interface.
func (e *ErrorBody) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *ErrorBody) GetStatus() int {
	return e.status
}

var (
	installOnce sync.Once
	mappers     sync.Map // operation ID -> ErrorMapper
)

// ErrorMapper rewrites a framework error raised while serving one operation.
// cause is the underlying decoder or reader message without Huma's prefix.
type ErrorMapper func(status int, cause string) (int, string)

// MapOperationErrors makes framework errors of the operation with operationID
// (body decoding, content type, body size) go through fn instead of the default rendering.
func MapOperationErrors(operationID string, fn ErrorMapper) {
	mappers.Store(operationID, fn)
}

// Install routes Huma's framework errors (body parsing, validation, negotiation)
// through ErrorBody so clients see a single error shape. Call before registering operations.
func Install() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return Error(context.Background(), status, withDetails(msg, errs), errs...)
		}
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			ctx := context.Background()
			if hctx != nil {
				ctx = hctx.Context()
				if fn := mapperFor(hctx); fn != nil {
					status, msg = fn(status, cause(msg, errs))
					return Error(ctx, status, msg, errs...)
				}
			}
			return Error(ctx, status, withDetails(msg, errs), errs...)
		}
	})
}

func mapperFor(hctx huma.Context) ErrorMapper {
	op := hctx.Operation()
	if op == nil || op.OperationID == "" {
		return nil
	}
	if v, ok := mappers.Load(op.OperationID); ok {
		return v.(ErrorMapper)
	}
	return nil
}

// Error builds a status error carrying msg and logs it at a severity derived from status.
// Causes in errs are logged, never sent to the client.
func Error(ctx context.Context, status int, msg string, errs ...error) huma.StatusError {
	msg = messageOrDefault(status, msg)
	logWithStatus(ctx, status, msg, joinErrors(errs), zap.Int("status", status))
	return &ErrorBody{Message: msg, status: status}
}

// WriteError renders an ErrorBody as JSON for handlers that bypass Huma.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, errs ...error) {
	se := Error(r.Context(), status, msg, errs...)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.GetStatus())
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(se); err != nil {
		applog.LogError(r.Context(), "failed to render error response", err)
	}
}

// NotFoundHandler emits a 404 error body.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler emits a 405 error body with an Allow header.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		WriteError(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Recoverer converts panics into 500 error bodies. http.ErrAbortHandler is re-raised
// so net/http can abort the connection, and nothing is written if the handler
// already sent a status line.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity, as net/http does
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				err = fmt.Errorf("panic: %w\n%s", err, debug.Stack())
				if ww.Status() != 0 {
					applog.LogError(r.Context(), "panic after response started", err)
					return
				}
				WriteError(ww, r, http.StatusInternalServerError, msgInternal, err)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// allowedMethods inspects chi's routing context to discover allowed methods.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		if r.URL.RawPath != "" {
			routePath = r.URL.RawPath
		} else {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// withDetails folds Huma's validation details into the message, e.g.
// "validation failed: expected string (body.message)".
func withDetails(msg string, errs []error) string {
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		detail := err.Error()
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			if d := detailer.ErrorDetail(); d != nil {
				detail = d.Message
				if d.Location != "" {
					detail += " (" + d.Location + ")"
				}
			}
		}
		details = append(details, detail)
	}
	if len(details) == 0 {
		return msg
	}
	if strings.TrimSpace(msg) == "" {
		return strings.Join(details, "; ")
	}
	return msg + ": " + strings.Join(details, "; ")
}

// cause returns the messages of errs joined by "; ", or msg when there are none.
func cause(msg string, errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		text := err.Error()
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			if d := detailer.ErrorDetail(); d != nil {
				text = d.Message
			}
		}
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return msg
	}
	return strings.Join(parts, "; ")
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

func messageOrDefault(status int, msg string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func logWithStatus(ctx context.Context, status int, msg string, err error, fields ...zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		applog.LogError(ctx, msg, err, fields...)
	case status >= http.StatusBadRequest:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		applog.LogWarn(ctx, msg, fields...)
	default:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		applog.LogInfo(ctx, msg, fields...)
	}
}
