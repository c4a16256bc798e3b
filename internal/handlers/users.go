package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/services"
	"github.com/modlocker/modlocker/pkg/response"
)

type UserHandler struct {
	users       *services.UserService
	assignments *services.RoleAssignmentService
}

func NewUserHandler(db *gorm.DB, audit *services.AuditService) (*UserHandler, error) {
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}
	assignments, err := services.NewRoleAssignmentService(db, audit)
	if err != nil {
		return nil, err
	}
	return &UserHandler{users: users, assignments: assignments}, nil
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	users, total, err := h.users.ListUsers(requestContext(c), services.ListUsersOptions{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{
		Page:    page,
		PerPage: pageSize,
		Total:   int(total),
	})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetUser(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:id/ban
func (h *UserHandler) SetBanned(c *gin.Context) {
	var body struct {
		Banned bool `json:"banned"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.users.SetBanned(requestContext(c), c.Param("id"), body.Banned)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// GET /api/users/:id/roles
func (h *UserHandler) ListRoles(c *gin.Context) {
	assignments, err := h.assignments.ListRoles(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignments)
}

// PUT /api/users/:id/roles replaces the user's role set in full.
func (h *UserHandler) SetRoles(c *gin.Context) {
	var body struct {
		Roles []string `json:"roles"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.assignments.SetRoles(requestContext(c), c.Param("id"), body.Roles); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// POST /api/users/:id/roles adds roles without touching existing ones.
func (h *UserHandler) AddRoles(c *gin.Context) {
	var body struct {
		Roles []string `json:"roles" validate:"required,min=1"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.assignments.AddRoles(requestContext(c), c.Param("id"), body.Roles); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// POST /api/bulk-role-assignment
func (h *UserHandler) BulkAssign(c *gin.Context) {
	var body struct {
		RoleID  string   `json:"role_id" validate:"required"`
		UserIDs []string `json:"user_ids" validate:"required,min=1"`
		Action  string   `json:"action" validate:"required,oneof=assign remove"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.assignments.BulkAssign(requestContext(c), body.RoleID, body.UserIDs, services.BulkAssignAction(body.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
