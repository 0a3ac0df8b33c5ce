package auth

import (
	"context"

	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the resolved caller.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*models.Identity)
	return id, ok && id != nil
}
