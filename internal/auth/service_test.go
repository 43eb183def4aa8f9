package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/angelmondragon/fleetparts-backend/pkg/auth"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/security"
)

type fakeDirectory struct {
	user        *models.User
	lastLoginAt *time.Time
}

func (f *fakeDirectory) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeDirectory) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	f.lastLoginAt = &at
	return nil
}

type fakeLimiter struct {
	allowFn func(scope string) bool
	calls   []string
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.calls = append(f.calls, scope)
	if f.allowFn == nil {
		return true, 1, nil
	}
	return f.allowFn(scope), 1, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "fleetparts-test", ExpirationMinutes: 30}
}

func testRateLimitConfig() config.AuthRateLimitConfig {
	return config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 5, LoginIPLimit: 20}
}

func seedUser(t *testing.T, password string, role enums.UserRole) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        "keeper@fleet.test",
		FullName:     "Storekeeper",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
}

func TestLoginMintsTokenWithCapabilities(t *testing.T) {
	directory := &fakeDirectory{user: seedUser(t, "stores-4-life", enums.UserRoleStorekeeper)}
	limiter := &fakeLimiter{}
	minted := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(directory, limiter, nil, testJWTConfig(), testRateLimitConfig(), ServiceConfig{
		Now: func() time.Time { return minted },
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginInput{
		Email:      "Keeper@Fleet.Test",
		Password:   "stores-4-life",
		RemoteAddr: "10.0.0.7",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != directory.user.ID || claims.Role != enums.UserRoleStorekeeper {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !result.Capabilities.Has(enums.CapabilityMoveStock) {
		t.Fatal("storekeeper should be able to move stock")
	}
	if result.Capabilities.Has(enums.CapabilityManageUsers) {
		t.Fatal("storekeeper must not manage users")
	}
	if directory.lastLoginAt == nil {
		t.Fatal("last login not stamped")
	}
	if len(limiter.calls) != 2 {
		t.Fatalf("expected email and ip throttle checks, got %v", limiter.calls)
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	directory := &fakeDirectory{user: seedUser(t, "right-password", enums.UserRoleCrew)}
	svc, err := NewService(directory, nil, nil, testJWTConfig(), testRateLimitConfig(), ServiceConfig{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "keeper@fleet.test", Password: "wrong"})
	_, unknownUser := svc.Login(ctx, LoginInput{Email: "ghost@fleet.test", Password: "whatever"})

	if !pkgerrors.IsCode(wrongPassword, pkgerrors.CodeUnauthorized) {
		t.Fatalf("wrong password: %v", wrongPassword)
	}
	if !pkgerrors.IsCode(unknownUser, pkgerrors.CodeUnauthorized) {
		t.Fatalf("unknown user: %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("failure messages must not reveal which part failed: %q vs %q",
			wrongPassword.Error(), unknownUser.Error())
	}
}

func TestLoginThrottled(t *testing.T) {
	directory := &fakeDirectory{user: seedUser(t, "stores-4-life", enums.UserRoleStorekeeper)}
	limiter := &fakeLimiter{allowFn: func(scope string) bool { return false }}
	svc, err := NewService(directory, limiter, nil, testJWTConfig(), testRateLimitConfig(), ServiceConfig{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginInput{Email: "keeper@fleet.test", Password: "stores-4-life"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden when throttled, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	svc, err := NewService(&fakeDirectory{}, nil, nil, testJWTConfig(), testRateLimitConfig(), ServiceConfig{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	_, err = svc.Login(context.Background(), LoginInput{Email: "", Password: ""})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
