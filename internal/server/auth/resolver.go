package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// Resolver turns a bearer token into the identity of the caller.
type Resolver struct {
	codec *Codec
	users UserStore
}

func NewResolver(codec *Codec, users UserStore) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// Resolve decodes token and loads its subject from the store. Every failure
// to establish an active identity is reported as common.ErrorUnauthorized,
// wrapping the underlying cause; store failures are common.ErrorInternal.
//
// The embedded user snapshot is ignored: role and active flag come from the
// store on every call.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := r.codec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", common.ErrorUnauthorized)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", common.ErrorUnauthorized)
	}

	user, err := r.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", common.ErrorUnauthorized)
	}

	return user.Identity(), nil
}
