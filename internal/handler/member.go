package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/middleware"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
	"github.com/longtk/giapha/internal/service"
)

// MemberHandler exposes the thành viên CRUD and search endpoints.
type MemberHandler struct {
	Members *service.MemberService
}

func NewMemberHandler(m *service.MemberService) *MemberHandler { return &MemberHandler{Members: m} }

const dateLayout = "2006-01-02"

type memberReq struct {
	FullName  string `json:"full_name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD, empty for unknown
	DeathDate string `json:"death_date"`
	FatherID  uint64 `json:"father_id"`
	MotherID  uint64 `json:"mother_id"`
	SpouseID  uint64 `json:"spouse_id"`
	UserID    uint64 `json:"user_id"`
}

type memberPart struct {
	ID        uint64 `json:"id"`
	PublicID  string `json:"public_id"`
	TreeID    uint64 `json:"tree_id"`
	UserID    uint64 `json:"user_id,omitempty"`
	FullName  string `json:"full_name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date,omitempty"`
	DeathDate string `json:"death_date,omitempty"`
	FatherID  uint64 `json:"father_id,omitempty"`
	MotherID  uint64 `json:"mother_id,omitempty"`
	SpouseID  uint64 `json:"spouse_id,omitempty"`
}

func memberPartOf(m model.Member) memberPart {
	p := memberPart{
		ID:       m.ID,
		PublicID: m.PublicID,
		TreeID:   m.TreeID,
		UserID:   m.UserID,
		FullName: m.FullName,
		Gender:   m.Gender,
		FatherID: m.FatherID,
		MotherID: m.MotherID,
		SpouseID: m.SpouseID,
	}
	if m.BirthDate != nil {
		p.BirthDate = m.BirthDate.Format(dateLayout)
	}
	if m.DeathDate != nil {
		p.DeathDate = m.DeathDate.Format(dateLayout)
	}
	return p
}

func (r memberReq) toInput() (service.MemberInput, map[string]string) {
	in := service.MemberInput{
		FullName: r.FullName,
		Gender:   r.Gender,
		FatherID: r.FatherID,
		MotherID: r.MotherID,
		SpouseID: r.SpouseID,
		UserID:   r.UserID,
	}
	fields := map[string]string{}
	if s := strings.TrimSpace(r.BirthDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			fields["birth_date"] = "birth date must be YYYY-MM-DD"
		} else {
			in.BirthDate = &t
		}
	}
	if s := strings.TrimSpace(r.DeathDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			fields["death_date"] = "death date must be YYYY-MM-DD"
		} else {
			in.DeathDate = &t
		}
	}
	return in, fields
}

// Create adds a member to the tree in the path.
func (h *MemberHandler) Create(c echo.Context) error {
	treeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tree id"})
	}
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, fields := req.toInput()
	if len(fields) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "VALIDATION_ERROR", "fields": fields})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Members.Create(ctx, id, treeID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, memberPartOf(m))
}

// Get returns one member record.
func (h *MemberHandler) Get(c echo.Context) error {
	memberID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Members.Get(ctx, id, memberID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, memberPartOf(m))
}

// Update rewrites a member record.
func (h *MemberHandler) Update(c echo.Context) error {
	memberID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, fields := req.toInput()
	if len(fields) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "VALIDATION_ERROR", "fields": fields})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Members.Update(ctx, id, memberID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, memberPartOf(m))
}

// Delete removes a member record.
func (h *MemberHandler) Delete(c echo.Context) error {
	memberID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Members.Delete(ctx, id, memberID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List searches the members of a tree with optional ?name= filter and
// pagination.
func (h *MemberHandler) List(c echo.Context) error {
	treeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tree id"})
	}
	page, ps := pageParams(c)
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	members, total, err := h.Members.Search(ctx, id, repository.MemberSearchQuery{
		TreeID:   treeID,
		Name:     strings.TrimSpace(c.QueryParam("name")),
		Page:     page,
		PageSize: ps,
	})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]memberPart, 0, len(members))
	for _, m := range members {
		items = append(items, memberPartOf(m))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}
