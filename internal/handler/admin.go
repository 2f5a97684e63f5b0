package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
	"github.com/longtk/giapha/internal/service"
)

// AdminHandler exposes the admin-only user management endpoints.  Route
// policy restricts the whole group to Admins.
type AdminHandler struct {
	Users *repository.UserRepo
}

func NewAdminHandler(u *repository.UserRepo) *AdminHandler { return &AdminHandler{Users: u} }

type adminUserPart struct {
	ID            uint64     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          model.Role `json:"role"`
	TreeID        uint64     `json:"tree_id,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	IsActive      bool       `json:"is_active"`
}

type updateRoleReq struct {
	Role model.Role `json:"role"`
}

// ListUsers pages through all user accounts.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, ps := pageParams(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, page, ps)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]adminUserPart, 0, len(users))
	for _, u := range users {
		items = append(items, adminUserPart{
			ID:            u.ID,
			Email:         u.Email,
			FullName:      u.FullName,
			Role:          u.Role,
			TreeID:        u.TreeID,
			EmailVerified: u.EmailVerified,
			IsActive:      u.IsActive,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

// UpdateRole changes a user's role code.  Existing access tokens keep the
// old role until they expire; the new role applies from the next login
// or refresh.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil || !req.Role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": service.CodeNotFound})
		}
		return writeError(c, err)
	}
	if err := h.Users.UpdateRole(ctx, userID, req.Role); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
