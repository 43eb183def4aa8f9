package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'crew',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(users).Error; err != nil {
		t.Fatalf("create users: %v", err)
	}
	svc, err := NewService(NewRepository(db), testPasswordConfig())
	if err != nil {
		t.Fatalf("user service: %v", err)
	}
	return svc, db
}

func TestCreateHashesPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, temp, err := svc.Create(ctx, CreateInput{
		Email:    "Chief@Fleet.Test",
		FullName: "Chief Engineer",
		Password: "engine-room-9",
		Role:     enums.UserRoleEngineer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if temp != "" {
		t.Fatalf("explicit password should not return a temp one, got %q", temp)
	}
	if user.Email != "chief@fleet.test" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "engine-room-9" {
		t.Fatal("password stored in clear")
	}
	ok, err := security.VerifyPassword("engine-room-9", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestCreateGeneratesTempPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, temp, err := svc.Create(context.Background(), CreateInput{
		Email:    "deckhand@fleet.test",
		FullName: "Deckhand",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if temp == "" {
		t.Fatal("expected a generated temporary password")
	}
	if user.Role != enums.UserRoleCrew {
		t.Fatalf("role should default to crew, got %q", user.Role)
	}
	ok, err := security.VerifyPassword(temp, user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("temp password does not verify: ok=%v err=%v", ok, err)
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, CreateInput{Email: "dup@fleet.test", FullName: "First", Password: "passw0rd1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _, err := svc.Create(ctx, CreateInput{Email: "DUP@fleet.test", FullName: "Second", Password: "passw0rd2"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Create(ctx, CreateInput{Email: "bosun@fleet.test", FullName: "Bosun", Password: "old-password"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "new-password-1"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "old-password", "short"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "old-password", "new-password-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	refreshed, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ok, err := security.VerifyPassword("new-password-1", refreshed.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new password does not verify: ok=%v err=%v", ok, err)
	}
}

func TestResetPasswordAndDeactivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Create(ctx, CreateInput{Email: "mate@fleet.test", FullName: "Mate", Password: "first-mate-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	temp, err := svc.ResetPassword(ctx, user.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	refreshed, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ok, err := security.VerifyPassword(temp, refreshed.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("reset password does not verify: ok=%v err=%v", ok, err)
	}

	if err := svc.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.FindActiveByEmail(ctx, user.Email); err == nil {
		t.Fatal("deactivated account should not resolve for login")
	}
}
