package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// Authenticator checks a username and password against the user store.
type Authenticator struct {
	users     UserStore
	hasher    *Hasher
	dummyHash string
}

func NewAuthenticator(users UserStore, hasher *Hasher) *Authenticator {
	// compared against on unknown usernames so both paths pay for bcrypt
	dummy, _ := hasher.Hash("not-a-real-password")
	return &Authenticator{users: users, hasher: hasher, dummyHash: dummy}
}

// Authenticate returns the identity of the account named username when
// password matches. Unknown users, wrong passwords and inactive accounts all
// yield common.ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	user, err := a.users.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.hasher.Verify(password, a.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	return user.Identity(), nil
}
