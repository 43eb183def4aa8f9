package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/auth"
	"github.com/angelmondragon/fleetparts-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/security"
)

// userDirectory resolves accounts for credential checks.
type userDirectory interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// loginLimiter throttles credential attempts per scope key.
type loginLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// sessionManager tracks refresh sessions keyed by the token jti.
type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service authenticates users and issues access tokens.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
}

// LoginInput carries the credentials plus the caller address for throttling.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RemoteAddr string `json:"-"`
}

// RefreshInput carries the expired access token and the refresh secret.
type RefreshInput struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is what a successful login hands back to the controller.
type LoginResult struct {
	Token        string              `json:"token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time           `json:"expires_at"`
	User         *models.User        `json:"user,omitempty"`
	Capabilities enums.CapabilitySet `json:"capabilities"`
}

type service struct {
	users     userDirectory
	limiter   loginLimiter
	sessions  sessionManager
	jwt       config.JWTConfig
	rateLimit config.AuthRateLimitConfig
	now       func() time.Time
}

// ServiceConfig carries optional knobs for NewService.
type ServiceConfig struct {
	Now func() time.Time
}

// NewService wires the auth service. The limiter and session manager may be
// nil when redis is not configured, which disables throttling and refresh
// sessions respectively.
func NewService(users userDirectory, limiter loginLimiter, sessions sessionManager, jwt config.JWTConfig, rateLimit config.AuthRateLimitConfig, cfg ServiceConfig) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{users: users, limiter: limiter, sessions: sessions, jwt: jwt, rateLimit: rateLimit, now: now}, nil
}

// Login verifies credentials and mints an access token. Failures for unknown
// accounts and wrong passwords are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allowAttempt(ctx, email, input.RemoteAddr); err != nil {
		return nil, err
	}

	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID.String()).Msg("password hash could not be verified")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "login failed")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	now := s.now()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "login failed")
	}

	var refreshToken string
	if s.sessions != nil {
		refreshToken, err = s.sessions.Generate(ctx, accessID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session store unavailable")
		}
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to stamp last login")
	}
	loginAt := now
	user.LastLoginAt = &loginAt

	return &LoginResult{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.jwt.Expiration()),
		User:         user,
		Capabilities: enums.CapabilitiesForRole(user.Role),
	}, nil
}

// Refresh rotates a refresh session and mints a fresh access token for the
// identity carried by the expired one.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*LoginResult, error) {
	if s.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh sessions are not enabled")
	}
	if input.AccessToken == "" || input.RefreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token and refresh token are required")
	}

	claims, err := auth.ParseExpiredAccessToken(s.jwt, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session")
	}

	newAccessID, newRefreshToken, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session store unavailable")
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh failed")
	}

	return &LoginResult{
		Token:        token,
		RefreshToken: newRefreshToken,
		ExpiresAt:    now.Add(s.jwt.Expiration()),
		Capabilities: enums.CapabilitiesForRole(claims.Role),
	}, nil
}

// Logout drops the refresh session tied to the access token's jti.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if s.sessions == nil || strings.TrimSpace(accessID) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session store unavailable")
	}
	return nil
}

func (s *service) allowAttempt(ctx context.Context, email, remoteAddr string) error {
	if s.limiter == nil {
		return nil
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:email:"+email,
		int64(s.rateLimit.LoginEmailLimit), s.rateLimit.LoginWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "too many login attempts, slow down")
	}

	if remoteAddr != "" {
		allowed, _, err = s.limiter.FixedWindowAllow(ctx, "login:ip:"+remoteAddr,
			int64(s.rateLimit.LoginIPLimit), s.rateLimit.LoginWindow)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeForbidden, "too many login attempts, slow down")
		}
	}
	return nil
}
