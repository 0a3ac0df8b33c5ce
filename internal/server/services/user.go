// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and account management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/dbx"
	"github.com/dmitrijs2005/itemsapi/internal/server/auth"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/users"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

// RegisterInput is a registration request. New accounts always get the user role.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,alphanumunicode,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateUserInput is a partial account update; nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Username *string `json:"username" validate:"omitnil,alphanumunicode,max=50"`
	Password *string `json:"password" validate:"omitnil,min=8"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role" validate:"omitnil,oneof=admin user"`
}

// UserService provides account operations:
// - Register: create users
// - Login: verify credentials and mint an access token
// - Get/List/Update/Delete: account management, mutations owner-only
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	hasher        *auth.Hasher
	authenticator *auth.Authenticator
	codec         *auth.Codec
}

// NewUserService constructs a UserService. The authenticator reads users
// through the pool-bound repository.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher, codec *auth.Codec) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		authenticator: auth.NewAuthenticator(m.Users(db), hasher),
		codec:         codec,
	}
}

// Register validates in, rejects taken emails and usernames and stores the
// new account with a bcrypt hash of its password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPasswordLength(&in.Password); err != nil {
		return nil, err
	}
	return s.create(ctx, in.Email, in.Username, in.Password, models.RoleUser)
}

func (s *UserService) create(ctx context.Context, email, username, password, role string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := checkAvailable(ctx, repo, 0, &email, &username); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(ctx, &models.User{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// checkAvailable fails when email or username belongs to an account other than selfID.
func checkAvailable(ctx context.Context, repo users.Repository, selfID int64, email, username *string) error {
	if email != nil {
		u, err := repo.GetUserByEmail(ctx, *email)
		switch {
		case err == nil && u.ID != selfID:
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, ErrEmailTaken)
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return err
		}
	}
	if username != nil {
		u, err := repo.GetUserByLogin(ctx, *username)
		switch {
		case err == nil && u.ID != selfID:
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, ErrUsernameTaken)
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return err
		}
	}
	return nil
}

// Login verifies the credentials and, on success, returns a new access token.
// Unknown users and wrong passwords both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*Token, error) {
	identity, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Encode(identity, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &Token{
		AccessToken: access,
		TokenType:   common.TokenTypeBearer,
		ExpiresIn:   int64(s.codec.Lifetime().Seconds()),
	}, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, page Page) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx, page.Skip, page.Limit)
}

// Update applies in to account id on behalf of caller. A missing account is
// reported before a foreign one; only admins may change roles.
func (s *UserService) Update(ctx context.Context, caller *models.Identity, id int64, in UpdateUserInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != nil {
		var err error
		if hash, err = s.hasher.Hash(*in.Password); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.RequireOwner(caller, user.ID); err != nil {
			return err
		}
		if in.Role != nil && *in.Role != user.Role && !caller.IsAdmin() {
			return common.ErrorForbidden
		}
		if err := checkAvailable(ctx, repo, user.ID, in.Email, in.Username); err != nil {
			return err
		}

		if in.Email != nil {
			user.Email = *in.Email
		}
		if in.Username != nil {
			user.Username = *in.Username
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if hash != "" {
			user.PasswordHash = hash
		}

		updated, err = repo.Update(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes account id on behalf of caller and returns it.
func (s *UserService) Delete(ctx context.Context, caller *models.Identity, id int64) (*models.User, error) {
	var deleted *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.RequireOwner(caller, user.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, user.ID); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// BootstrapAdmin creates an admin account unless username is already taken.
// It reports whether an account was created.
func (s *UserService) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	in := RegisterInput{Email: email, Username: username, Password: password}
	if err := validateStruct(in); err != nil {
		return false, err
	}
	if _, err := s.create(ctx, email, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
