package instrument

import "context"

type correlationIDKey struct{}

// SetCorrelationID stores the request correlation id in the context so log
// records and downstream calls can carry it.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID returns the correlation id stored in the context, or an
// empty string when none was set.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)

	return id
}
