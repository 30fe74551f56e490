package services

import (
	"strings"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
)

// ActorContext identifies the user performing an operation. It is passed
// explicitly into every core call; there is no ambient current-user state.
type ActorContext struct {
	UserID    string
	CompanyID string
	RoleCode  string
}

// Valid reports whether the context carries a usable identity.
func (a ActorContext) Valid() bool {
	return strings.TrimSpace(a.UserID) != ""
}

// IsOwner reports whether the actor is a company owner.
func (a ActorContext) IsOwner() bool {
	return a.RoleCode == models.RoleOwner
}

// ActorFromUser builds an ActorContext for a loaded user record. Invited
// members act within the company that invited them rather than their own.
func ActorFromUser(user *models.User) ActorContext {
	actor := ActorContext{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		RoleCode:  user.RoleCode,
	}
	if user.RoleCode != models.RoleOwner && user.InvitedCompanyID != nil && *user.InvitedCompanyID != "" {
		actor.CompanyID = *user.InvitedCompanyID
	}
	return actor
}

// resolveCompanyID derives the tenant id for the actor, failing when the
// context is incomplete.
func resolveCompanyID(actor ActorContext) (string, error) {
	if !actor.Valid() {
		return "", apperrors.ErrUnauthorized
	}
	companyID := strings.TrimSpace(actor.CompanyID)
	if companyID == "" {
		return "", apperrors.NewBadRequest("actor has no company scope")
	}
	return companyID, nil
}
