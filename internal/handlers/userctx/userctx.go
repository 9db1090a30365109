package userctx

import (
	"context"

	"github.com/openfield/identity/internal/models"
)

type ctxKey struct{}

// NewContext returns ctx carrying the authenticated user
func NewContext(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext extracts the authenticated user set by the auth middleware
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}
