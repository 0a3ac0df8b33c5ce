package auth

import (
	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// CanMutate reports whether caller may change a resource owned by ownerID.
// Only the owner may; the admin role grants nothing extra here.
func CanMutate(caller *models.Identity, ownerID int64) bool {
	return caller != nil && caller.ID == ownerID
}

// RequireOwner is CanMutate as an error: common.ErrorUnauthorized without a
// caller, common.ErrorForbidden for anyone but the owner.
func RequireOwner(caller *models.Identity, ownerID int64) error {
	if caller == nil {
		return common.ErrorUnauthorized
	}
	if !CanMutate(caller, ownerID) {
		return common.ErrorForbidden
	}
	return nil
}
