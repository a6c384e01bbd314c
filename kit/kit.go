// Package kit holds the small transport-agnostic plumbing shared by the
// HTTP and MCP surfaces: the Endpoint type and request-scoped context keys.
package kit

import "context"

// Endpoint is a transport-agnostic request handler. The request value is
// produced by a transport-specific decode function.
type Endpoint func(ctx context.Context, req any) (any, error)

type contextKey string

const (
	// RequestIDKey carries the per-request correlation id.
	RequestIDKey contextKey = "kit_request_id"
	// TransportKey identifies the inbound transport ("http", "mcp").
	TransportKey contextKey = "kit_transport"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}
