package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserServiceAdapter exposes user lookups to packages that must not import auth's service
type UserServiceAdapter struct {
	repo Repository
}

func NewUserServiceAdapter(repo Repository) *UserServiceAdapter {
	return &UserServiceAdapter{repo: repo}
}

// GetUserByID returns the contact details notifications are addressed with
func (usa *UserServiceAdapter) GetUserByID(ctx context.Context, userID uuid.UUID) (email, firstName, lastName string, err error) {
	user, err := usa.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return user.Email, user.FirstName, user.LastName, nil
}
