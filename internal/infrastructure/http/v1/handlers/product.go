package handlers

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/theme"
)

// ProductHandler serves the product and room APIs.
type ProductHandler struct {
	*BaseHandler
	catalog *catalog.Service
	repo    catalog.Repository
	themes  *theme.Selector
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, svc *catalog.Service, repo catalog.Repository, themes *theme.Selector) *ProductHandler {
	return &ProductHandler{BaseHandler: base, catalog: svc, repo: repo, themes: themes}
}

// RegisterRoutes registers the product API group.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/active", h.Active)
	rg.GET("/named_products", h.NamedProducts)
	rg.GET("/notes", h.Notes)
	rg.GET("/rooms", h.Rooms)
	rg.GET("/themes", h.Themes)
}

// Active lists the vendable products of a room: time window open and
// inventory not exhausted.
func (h *ProductHandler) Active(c *gin.Context) {
	roomID := int64(h.ParseIntQuery(c, "room_id", 0))
	products, err := h.catalog.ListVendable(c.Request.Context(), roomID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, products)
}

// NamedProducts lists the quickbuy aliases.
func (h *ProductHandler) NamedProducts(c *gin.Context) {
	named, err := h.repo.ListNamedProducts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, named)
}

// Notes lists the product notes currently shown in a room.
func (h *ProductHandler) Notes(c *gin.Context) {
	roomID := int64(h.ParseIntQuery(c, "room_id", 0))
	notes, err := h.catalog.ActiveNotes(c.Request.Context(), roomID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, notes)
}

// Rooms lists all rooms for the room index page.
func (h *ProductHandler) Rooms(c *gin.Context) {
	rooms, err := h.repo.ListRooms(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rooms)
}

// Themes returns the asset paths of the seasonally active themes.
func (h *ProductHandler) Themes(c *gin.Context) {
	paths := h.themes.Paths(c.Request.Context())
	h.OK(c, gin.H{
		"styles":  paths.Styles,
		"scripts": paths.Scripts,
		"content": paths.Content,
	})
}
