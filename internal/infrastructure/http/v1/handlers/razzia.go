package handlers

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/domain/razzia"
	"stregsystem/internal/infrastructure/http/v1/dto"
)

// RazziaHandler serves the razzia check-in tools.
type RazziaHandler struct {
	*BaseHandler
	razzias *razzia.Service
}

// NewRazziaHandler creates a new razzia handler.
func NewRazziaHandler(base *BaseHandler, razzias *razzia.Service) *RazziaHandler {
	return &RazziaHandler{BaseHandler: base, razzias: razzias}
}

// RegisterRoutes registers the razzia endpoints.
func (h *RazziaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.Recent)
	rg.POST("/:razzia_id/checkin", h.CheckIn)
	rg.GET("/:razzia_id/members", h.Members)
}

// Create starts a razzia.
func (h *RazziaHandler) Create(c *gin.Context) {
	var req dto.RazziaCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.razzias.New(c.Request.Context(), req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r.ID)
}

// Recent lists the newest razzias.
func (h *RazziaHandler) Recent(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 10)
	razzias, err := h.razzias.Recent(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, razzias)
}

// CheckIn registers a member's visit. Interval and once-only rules are
// reported in the result, not as errors.
func (h *RazziaHandler) CheckIn(c *gin.Context) {
	razziaID, ok := h.ParseIDParam(c, "razzia_id")
	if !ok {
		return
	}
	var req dto.RazziaCheckInRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, result, err := h.razzias.CheckIn(c.Request.Context(), razziaID, req.Username)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewRazziaCheckInResponse(m.ID, m.Username, result))
}

// Members lists distinct checked-in members with their entry counts.
func (h *RazziaHandler) Members(c *gin.Context) {
	razziaID, ok := h.ParseIDParam(c, "razzia_id")
	if !ok {
		return
	}
	counts, err := h.razzias.Members(c.Request.Context(), razziaID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, counts)
}
