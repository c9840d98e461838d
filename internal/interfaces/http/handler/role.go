package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/supplytrace/backend/internal/application/identity"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// RoleHandler serves role administration
type RoleHandler struct {
	BaseHandler
	roles *appidentity.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roles *appidentity.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RoleRequest names a role and the account it applies to
type RoleRequest struct {
	Role    string `json:"role" binding:"required,oneof=SUPPLIER MANUFACTURER ADMIN"`
	Account string `json:"account" binding:"required,uuid"`
}

func (r RoleRequest) input() appidentity.RoleInput {
	return appidentity.RoleInput{Role: r.Role, Account: uuid.MustParse(r.Account)}
}

// Grant gives an account a role
func (h *RoleHandler) Grant(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	grant, err := h.roles.GrantRole(c.Request.Context(), caller, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, grant)
}

// Revoke removes a role from an account
func (h *RoleHandler) Revoke(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.roles.RevokeRole(c.Request.Context(), caller, req.input()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// List returns the roles held by an account
func (h *RoleHandler) List(c *gin.Context) {
	account, ok := h.uuidParam(c, "account")
	if !ok {
		return
	}

	grants, err := h.roles.ListRoles(c.Request.Context(), account)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, grants)
}
