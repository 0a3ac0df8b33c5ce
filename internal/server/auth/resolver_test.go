package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestResolve_ReturnsStoredIdentity(t *testing.T) {
	clock := &fakeClock{t: mintTime}
	codec := newTestCodec(t, "secret", clock)
	store := newMemStore()
	u := store.add(models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleUser, IsActive: true})
	r := NewResolver(codec, store)

	// snapshot deliberately stale: the store is authoritative
	tok, err := codec.Encode(&models.Identity{ID: u.ID, Username: "old-name", Email: "old@example.com"}, time.Hour)
	require.NoError(t, err)

	id, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.ID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, 1, store.byID, "exactly one store read per resolve")
}

func TestResolve_PicksUpRoleChanges(t *testing.T) {
	clock := &fakeClock{t: mintTime}
	codec := newTestCodec(t, "secret", clock)
	store := newMemStore()
	u := store.add(models.User{Username: "alice", Role: models.RoleUser, IsActive: true})
	r := NewResolver(codec, store)

	tok, err := codec.Encode(u.Identity(), time.Hour)
	require.NoError(t, err)

	store.users[u.ID].Role = models.RoleAdmin

	id, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
}

func TestResolve_Unauthorized(t *testing.T) {
	clock := &fakeClock{t: mintTime}
	codec := newTestCodec(t, "secret", clock)
	exp := jwt.NewNumericDate(mintTime.Add(time.Hour))

	tests := []struct {
		name    string
		prepare func(t *testing.T, store *memStore) string
		cause   error
	}{
		{"deleted user", func(t *testing.T, store *memStore) string {
			u := store.add(models.User{Username: "gone", IsActive: true})
			tok, err := codec.Encode(u.Identity(), time.Hour)
			require.NoError(t, err)
			store.remove(u.ID)
			return tok
		}, nil},
		{"inactive user", func(t *testing.T, store *memStore) string {
			u := store.add(models.User{Username: "sleepy", IsActive: false})
			tok, err := codec.Encode(u.Identity(), time.Hour)
			require.NoError(t, err)
			return tok
		}, nil},
		{"expired token", func(t *testing.T, store *memStore) string {
			u := store.add(models.User{Username: "late", IsActive: true})
			tok, err := codec.Encode(u.Identity(), time.Minute)
			require.NoError(t, err)
			clock.t = mintTime.Add(2 * time.Minute)
			return tok
		}, common.ErrTokenExpired},
		{"forged token", func(t *testing.T, store *memStore) string {
			u := store.add(models.User{Username: "victim", IsActive: true})
			other, err := NewCodec("other-secret", "HS256", time.Hour)
			require.NoError(t, err)
			other.now = clock.now
			tok, err := other.Encode(u.Identity(), time.Hour)
			require.NoError(t, err)
			return tok
		}, common.ErrInvalidToken},
		{"no subject", func(t *testing.T, store *memStore) string {
			tok, err := codec.Encode(nil, time.Hour)
			require.NoError(t, err)
			return tok
		}, nil},
		{"non numeric subject", func(t *testing.T, store *memStore) string {
			return signRaw(t, jwt.SigningMethodHS256, []byte("secret"),
				Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}, Version: ClaimsVersion})
		}, nil},
		{"garbage", func(t *testing.T, store *memStore) string { return "garbage" }, common.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = mintTime
			store := newMemStore()
			tok := tt.prepare(t, store)

			id, err := NewResolver(codec, store).Resolve(context.Background(), tok)
			require.ErrorIs(t, err, common.ErrorUnauthorized)
			assert.Nil(t, id)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestResolve_StoreError(t *testing.T) {
	clock := &fakeClock{t: mintTime}
	codec := newTestCodec(t, "secret", clock)
	store := newMemStore()
	store.err = errors.New("db down")

	tok, err := codec.Encode(&models.Identity{ID: 1}, time.Hour)
	require.NoError(t, err)

	_, err = NewResolver(codec, store).Resolve(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.False(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestAliceFlow(t *testing.T) {
	ctx := context.Background()
	h := NewHasher(bcrypt.MinCost)
	store := newMemStore()
	codec, err := NewCodec("flow-secret", "HS256", 1440*time.Minute)
	require.NoError(t, err)

	registered := seedUser(t, store, h, "alice", "password123", true)
	authn := NewAuthenticator(store, h)

	id, err := authn.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "alice", id.Username)

	bad, err := authn.Authenticate(ctx, "alice", "wrongpass")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Nil(t, bad)

	tok, err := codec.Encode(id, 0)
	require.NoError(t, err)

	resolved, err := NewResolver(codec, store).Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, resolved.ID)
	assert.True(t, CanMutate(resolved, registered.ID))
}
