package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/middleware"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/service"
)

// TreeHandler exposes family-tree creation and membership endpoints.
type TreeHandler struct {
	Trees *service.TreeService
}

func NewTreeHandler(t *service.TreeService) *TreeHandler { return &TreeHandler{Trees: t} }

type createTreeReq struct {
	Name string `json:"name"`
}

type treePart struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uint64    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func treePartOf(t model.FamilyTree) treePart {
	return treePart{ID: t.ID, Name: t.Name, OwnerID: t.OwnerID, CreatedAt: t.CreatedAt}
}

// Create registers a new family tree; the caller becomes its Owner.  The
// new role only lands in tokens on the next login or refresh.
func (h *TreeHandler) Create(c echo.Context) error {
	var req createTreeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trees.Create(ctx, id, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, treePartOf(t))
}

// Join attaches the caller to an existing tree as a Member.
func (h *TreeHandler) Join(c echo.Context) error {
	treeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tree id"})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trees.Join(ctx, id, treeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, treePartOf(t))
}

// Get returns one tree, scope-checked against the caller.
func (h *TreeHandler) Get(c echo.Context) error {
	treeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tree id"})
	}
	id, _ := middleware.CurrentIdentity(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trees.Get(ctx, id, treeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, treePartOf(t))
}

// List pages through every tree (admin screen).
func (h *TreeHandler) List(c echo.Context) error {
	page, ps := pageParams(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	trees, total, err := h.Trees.List(ctx, page, ps)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]treePart, 0, len(trees))
	for _, t := range trees {
		items = append(items, treePartOf(t))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
