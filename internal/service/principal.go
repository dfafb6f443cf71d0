package service

import (
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
)

// Principal is the caller of an operation: a signed-in user or an anonymous cart session.
type Principal struct {
	UserID     uuid.UUID
	SessionKey string
	Role       string
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == models.RoleAdmin
}

func (p Principal) cartOwner() repo.CartOwner {
	if p.Authenticated() {
		return repo.CartOwner{UserID: p.UserID}
	}
	return repo.CartOwner{SessionKey: p.SessionKey}
}

func (p Principal) hasCartOwner() bool {
	return p.Authenticated() || p.SessionKey != ""
}
