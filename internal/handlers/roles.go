package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/permissions"
	"github.com/modlocker/modlocker/internal/services"
	"github.com/modlocker/modlocker/pkg/response"
)

type RoleHandler struct {
	svc *services.PermissionService
}

func NewRoleHandler(db *gorm.DB, audit *services.AuditService) (*RoleHandler, error) {
	svc, err := services.NewPermissionService(db, audit)
	if err != nil {
		return nil, err
	}
	return &RoleHandler{svc: svc}, nil
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body struct {
		Name        string   `json:"name" validate:"required,min=2,max=64"`
		Description string   `json:"description" validate:"max=255"`
		Permissions []string `json:"permissions"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.CreateRole(requestContext(c), services.CreateRoleInput{
		Name:          body.Name,
		Description:   body.Description,
		PermissionIDs: body.Permissions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PUT /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body struct {
		Name        string   `json:"name" validate:"omitempty,min=2,max=64"`
		Description string   `json:"description" validate:"max=255"`
		Permissions []string `json:"permissions"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.UpdateRole(requestContext(c), c.Param("id"), services.UpdateRoleInput{
		Name:          body.Name,
		Description:   body.Description,
		PermissionIDs: body.Permissions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteRole(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/permissions/registry
func (h *RoleHandler) Registry(c *gin.Context) {
	response.Success(c, http.StatusOK, permissions.All())
}
