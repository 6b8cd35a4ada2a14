package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/internal/users"
	pkgAuth "github.com/rmoreno-dev/mesa-backend/pkg/auth"
	"github.com/rmoreno-dev/mesa-backend/pkg/auth/session"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller. The cartToken
// argument to Login is the anonymous cart token extracted from the request;
// blank means no cart to attach.
type Service interface {
	Login(ctx context.Context, req LoginRequest, cartToken string) (*LoginResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type cartAttacher interface {
	Attach(ctx context.Context, token string, userID uuid.UUID) (*cart.AttachResult, error)
}

type service struct {
	users   userRepository
	session sessionManager
	carts   cartAttacher
	jwtCfg  config.JWTConfig
	logg    *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
// CartAttacher is optional; when nil, logins never return an attached cart.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	CartAttacher   cartAttacher
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:   params.UserRepo,
		session: params.SessionManager,
		carts:   params.CartAttacher,
		jwtCfg:  params.JWTConfig,
		logg:    params.Logger,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, cartToken string) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
		Cart:         s.attachCart(ctx, cartToken, user.ID),
	}, nil
}

// attachCart binds a presented anonymous cart to the freshly authenticated
// user. A failed attach is logged and swallowed: the login must succeed even
// when the cart token is stale or the merge cannot run.
func (s *service) attachCart(ctx context.Context, token string, userID uuid.UUID) *cart.View {
	token = strings.TrimSpace(token)
	if token == "" || s.carts == nil {
		return nil
	}

	attached, err := s.carts.Attach(ctx, token, userID)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "cart attach failed during login", err)
		}
		return nil
	}
	return attached
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
