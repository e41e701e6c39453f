// Package runid propagates the identifier of a report run via context.
package runid

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the run ID on outgoing wiki requests.
const Header = "X-Request-Id"

type ctxKey struct{}

// WithRunID returns a context with the given run ID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the run ID from context.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// New generates a run ID and returns the enriched context and ID.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRunID(ctx, id), id
}
