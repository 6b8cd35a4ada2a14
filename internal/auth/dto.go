package auth

import (
	"github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens, user, and attached cart produced by a
// successful login. Cart is null when no anonymous cart token was presented
// or the attach could not be completed.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	Cart         *cart.View     `json:"cart"`
}

// RegisterResponse returns the freshly created account.
type RegisterResponse struct {
	User *users.UserDTO `json:"user"`
}
