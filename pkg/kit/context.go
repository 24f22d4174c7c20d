package kit

import "context"

type contextKey string

const (
	// TransportKey records which transport dispatched the request
	// ("http" or "mcp").
	TransportKey contextKey = "kit_transport"
	// LibraryKey carries a per-request library path override.
	LibraryKey contextKey = "kit_library"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithLibrary(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, LibraryKey, path)
}

func GetLibrary(ctx context.Context) string {
	v, _ := ctx.Value(LibraryKey).(string)
	return v
}
