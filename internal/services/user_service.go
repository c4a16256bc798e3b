package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/pkg/crypto"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
)

// UserService exposes the account operations the admin surfaces need.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: audit,
	}, nil
}

// CreateUserInput describes the payload accepted by CreateUser.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
}

// ListUsersOptions filters and paginates ListUsers.
type ListUsersOptions struct {
	Search   string
	Page     int
	PageSize int
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already in use")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{
			"username": user.Username,
		},
	})

	return user, nil
}

// GetUser loads a single account.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// ListUsers returns a page of accounts, optionally filtered by a
// case-insensitive username or email substring.
func (s *UserService) ListUsers(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 25
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if search := strings.TrimSpace(opts.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at ASC").
		Offset((opts.Page - 1) * opts.PageSize).
		Limit(opts.PageSize).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// SetBanned flips the account's ban flag. Banned users are rejected at the
// authentication middleware before any permission or entitlement lookup.
func (s *UserService) SetBanned(ctx context.Context, userID string, banned bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if user.IsBanned != banned {
		if err := s.db.WithContext(ctx).Model(&user).Update("is_banned", banned).Error; err != nil {
			return nil, fmt.Errorf("user service: update ban flag: %w", err)
		}
		user.IsBanned = banned
	}

	action := "user.unban"
	if banned {
		action = "user.ban"
	}
	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   action,
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{
			"username": user.Username,
		},
	})

	return &user, nil
}

// DeleteUser removes an account and its role assignments in one
// transaction. Purchases and download events are retained for bookkeeping.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("user service: load user: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("user service: clear roles: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("user service: delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.delete",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{
			"username": user.Username,
		},
	})

	return nil
}
