// Package auth holds the authentication core of the API: password hashing,
// access token minting and verification, resolving a bearer token to the
// calling identity, and the ownership check guarding mutations.
package auth

import (
	"context"

	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// UserStore is the part of the users repository the auth core reads from.
// Lookups of absent users return common.ErrorNotFound.
type UserStore interface {
	GetUserByLogin(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}
