package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
	"github.com/angelmondragon/fleetparts-backend/pkg/security"
)

const tempPasswordLength = 12

// Service maintains user accounts.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, string, error)
	Update(ctx context.Context, input UpdateInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	ResetPassword(ctx context.Context, userID uuid.UUID) (string, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
	Activate(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	List(ctx context.Context, params pagination.Params) ([]models.User, string, error)

	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// CreateInput registers a new account. An empty password asks for a generated
// temporary one, returned alongside the user exactly once.
type CreateInput struct {
	Email    string         `json:"email"`
	FullName string         `json:"full_name"`
	Password string         `json:"password"`
	Role     enums.UserRole `json:"role"`
}

// UpdateInput edits profile fields.
type UpdateInput struct {
	UserID   uuid.UUID       `json:"user_id"`
	FullName *string         `json:"full_name"`
	Role     *enums.UserRole `json:"role"`
}

type service struct {
	repo     Repository
	password config.PasswordConfig
}

// NewService wires the user service.
func NewService(repo Repository, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, password: password}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleCrew
	}
	if !role.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid user role %q", role))
	}

	password := input.Password
	tempPassword := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, "", err
		}
		password = generated
		tempPassword = generated
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeConflict, err,
				fmt.Sprintf("an account for %s already exists", email))
		}
		return nil, "", err
	}
	return user, tempPassword, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.User, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid user role %q", *input.Role))
	}
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
	}

	user, err := s.repo.Get(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(next) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must be at least 8 characters")
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return err
	}

	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password does not match")
	}

	hash, err := security.HashPassword(next, s.password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, userID, hash)
}

// ResetPassword issues a fresh temporary password for the account.
func (s *service) ResetPassword(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	generated, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := security.HashPassword(generated, s.password)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return "", err
	}
	return generated, nil
}

func (s *service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return s.setActive(ctx, userID, false)
}

func (s *service) Activate(ctx context.Context, userID uuid.UUID) error {
	return s.setActive(ctx, userID, true)
}

func (s *service) setActive(ctx context.Context, userID uuid.UUID, active bool) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return err
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.User, string, error) {
	users, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(users) > limit {
		users = users[:limit]
		last := users[len(users)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return users, nextCursor, nil
}

// FindActiveByEmail loads a live account for credential checks.
func (s *service) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *service) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return s.repo.TouchLastLogin(ctx, userID, at)
}
