package auth

import (
	"time"

	"worldtour/internal/users"
)

// represents the authentication response
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// represents user data in responses (without sensitive info)
type UserResponse struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	PreferredCurrency string    `json:"preferred_currency"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toUserResponse(user *users.User) UserResponse {
	return UserResponse{
		ID:                user.ID.String(),
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Email:             user.Email,
		Role:              string(user.Role),
		PreferredCurrency: user.PreferredCurrency,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}
