package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/auditctx"
	"github.com/modlocker/modlocker/internal/models"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
)

// ErrUserNotFound indicates the referenced account does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// BulkAssignAction selects what a bulk role operation does per user.
type BulkAssignAction string

const (
	BulkActionAssign BulkAssignAction = "assign"
	BulkActionRemove BulkAssignAction = "remove"
)

// BulkAssignResult aggregates per-user outcomes of a bulk role operation.
// A user who already holds the role on assign, or lacks it on remove, counts
// as a success so retries stay idempotent.
type BulkAssignResult struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}

// RoleAssignmentService manages the user side of the role graph.
type RoleAssignmentService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewRoleAssignmentService constructs a RoleAssignmentService.
func NewRoleAssignmentService(db *gorm.DB, audit *AuditService) (*RoleAssignmentService, error) {
	if db == nil {
		return nil, errors.New("role assignment service: db is required")
	}
	return &RoleAssignmentService{
		db:           db,
		auditService: audit,
	}, nil
}

// SetRoles replaces the user's role set in full. The delete and re-insert
// run in one transaction so a concurrent resolver sees either the old set
// or the new one, never an empty intermediate.
func (s *RoleAssignmentService) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	ctx = ensureContext(ctx)
	roleIDs = normaliseIDs(roleIDs)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if err := requireRoles(tx, roleIDs); err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("role assignment: clear roles: %w", err)
		}
		if len(roleIDs) == 0 {
			return nil
		}

		assignments := buildAssignments(ctx, userID, roleIDs)
		if err := tx.Create(&assignments).Error; err != nil {
			return fmt.Errorf("role assignment: insert roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.set_roles",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{
			"role_ids": roleIDs,
		},
	})

	return nil
}

// AddRoles grants the listed roles on top of whatever the user already
// holds. Roles already held are skipped silently.
func (s *RoleAssignmentService) AddRoles(ctx context.Context, userID string, roleIDs []string) error {
	ctx = ensureContext(ctx)
	roleIDs = normaliseIDs(roleIDs)
	if len(roleIDs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if err := requireRoles(tx, roleIDs); err != nil {
			return err
		}

		var held []string
		if err := tx.Model(&models.UserRole{}).Where("user_id = ?", userID).Pluck("role_id", &held).Error; err != nil {
			return fmt.Errorf("role assignment: load existing roles: %w", err)
		}

		var missing []string
		for _, id := range roleIDs {
			if !containsString(held, id) {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		assignments := buildAssignments(ctx, userID, missing)
		if err := tx.Create(&assignments).Error; err != nil {
			return fmt.Errorf("role assignment: insert roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.add_roles",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{
			"role_ids": roleIDs,
		},
	})

	return nil
}

// ListRoles returns the user's assignments with role details preloaded.
func (s *RoleAssignmentService) ListRoles(ctx context.Context, userID string) ([]models.UserRole, error) {
	ctx = ensureContext(ctx)

	if err := requireUser(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}

	var assignments []models.UserRole
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Preload("Role.Permissions").
		Where("user_id = ?", userID).
		Order("assigned_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("role assignment: list roles: %w", err)
	}
	return assignments, nil
}

// BulkAssign applies one role to (or removes it from) many users. Failures
// are collected per user; the operation keeps going so one bad ID does not
// abort the batch.
func (s *RoleAssignmentService) BulkAssign(ctx context.Context, roleID string, userIDs []string, action BulkAssignAction) (*BulkAssignResult, error) {
	ctx = ensureContext(ctx)

	if action != BulkActionAssign && action != BulkActionRemove {
		return nil, apperrors.NewBadRequest("action must be assign or remove")
	}

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("role assignment: load role: %w", err)
	}

	result := &BulkAssignResult{}
	for _, userID := range normaliseIDs(userIDs) {
		if err := s.applyBulkItem(ctx, role.ID, userID, action); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", userID, bulkErrorMessage(err)))
			continue
		}
		result.Success++
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   fmt.Sprintf("role.bulk_%s", action),
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role_name": role.Name,
			"success":   result.Success,
			"failed":    len(result.Errors),
		},
	})

	return result, nil
}

func (s *RoleAssignmentService) applyBulkItem(ctx context.Context, roleID, userID string, action BulkAssignAction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}

		switch action {
		case BulkActionAssign:
			var count int64
			if err := tx.Model(&models.UserRole{}).
				Where("user_id = ? AND role_id = ?", userID, roleID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("role assignment: check existing: %w", err)
			}
			if count > 0 {
				return nil
			}
			assignment := buildAssignments(ctx, userID, []string{roleID})
			if err := tx.Create(&assignment).Error; err != nil {
				if isUniqueConstraintError(err) {
					return nil
				}
				return fmt.Errorf("role assignment: insert role: %w", err)
			}
		case BulkActionRemove:
			if err := tx.Where("user_id = ? AND role_id = ?", userID, roleID).
				Delete(&models.UserRole{}).Error; err != nil {
				return fmt.Errorf("role assignment: remove role: %w", err)
			}
		}
		return nil
	})
}

func buildAssignments(ctx context.Context, userID string, roleIDs []string) []models.UserRole {
	assignedBy := ""
	if actor, ok := auditctx.FromContext(ctx); ok {
		assignedBy = actor.UserID
	}

	now := time.Now().UTC()
	assignments := make([]models.UserRole, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		assignments = append(assignments, models.UserRole{
			UserID:     userID,
			RoleID:     roleID,
			AssignedBy: assignedBy,
			AssignedAt: now,
		})
	}
	return assignments
}

func requireUser(tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("role assignment: check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func requireRoles(tx *gorm.DB, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Role{}).Where("id IN ?", roleIDs).Count(&count).Error; err != nil {
		return fmt.Errorf("role assignment: check roles: %w", err)
	}
	if count != int64(len(roleIDs)) {
		return ErrRoleNotFound
	}
	return nil
}

func bulkErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
