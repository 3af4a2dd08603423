package handlers

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/domain/kiosk"
)

// KioskHandler serves the idle-screen media rotation.
type KioskHandler struct {
	*BaseHandler
	rotation *kiosk.Service
}

// NewKioskHandler creates a new kiosk handler.
func NewKioskHandler(base *BaseHandler, rotation *kiosk.Service) *KioskHandler {
	return &KioskHandler{BaseHandler: base, rotation: rotation}
}

// RegisterRoutes registers the kiosk rotation endpoints.
func (h *KioskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/random", h.Random)
	rg.GET("/next/:item_id", h.Next)
}

// Random returns an arbitrary currently-shown item.
func (h *KioskHandler) Random(c *gin.Context) {
	item, err := h.rotation.Random(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, itemPayload(item))
}

// Next returns the item following the given one in rotation order.
func (h *KioskHandler) Next(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "item_id")
	if !ok {
		return
	}
	item, err := h.rotation.Next(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, itemPayload(item))
}

func itemPayload(item *kiosk.Item) gin.H {
	return gin.H{"id": item.ID, "url": item.URL, "kind": item.Kind}
}
