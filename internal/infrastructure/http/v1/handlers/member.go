package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/heatmap"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
	"stregsystem/internal/infrastructure/http/v1/dto"
)

// MemberHandler serves the member-facing API group.
type MemberHandler struct {
	*BaseHandler
	members  *member.Service
	sales    order.Repository
	heatmaps *heatmap.Service
}

// NewMemberHandler creates a new member handler.
func NewMemberHandler(base *BaseHandler, members *member.Service, sales order.Repository, heatmaps *heatmap.Service) *MemberHandler {
	return &MemberHandler{BaseHandler: base, members: members, sales: sales, heatmaps: heatmaps}
}

// RegisterRoutes registers the member API group.
func (h *MemberHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", h.Signup)
	rg.GET("/signup/:signup_id", h.SignupStatus)
	rg.GET("/get_id", h.GetID)
	rg.GET("/balance", h.Balance)
	rg.GET("/info", h.Info)
	rg.GET("/sales", h.Sales)
	rg.GET("/payment/qr", h.PaymentQR)
	rg.GET("/heatmap", h.Heatmap)
}

// Signup creates a member plus the pending signup due.
func (h *MemberHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m := &member.Member{
		Username:  req.Username,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Gender:    member.Gender(req.Gender),
		WantSpam:  req.WantSpam,
		Year:      time.Now().Format("2006"),
	}
	signup, err := h.members.Signup(c.Request.Context(), m)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SignupResponse{
		SignupID:     signup.ID,
		MemberID:     m.ID,
		Due:          int64(signup.Due),
		MobilePayURI: signup.MobilePayURI(m.Username),
	})
}

// SignupStatus reports how far a pending signup has been paid down.
func (h *MemberHandler) SignupStatus(c *gin.Context) {
	signupID, ok := h.ParseIDParam(c, "signup_id")
	if !ok {
		return
	}
	signup, m, err := h.members.SignupStatus(c.Request.Context(), signupID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewSignupStatusResponse(signup, m))
}

// GetID resolves a username to the member id.
func (h *MemberHandler) GetID(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		h.Error(c, apperror.NewValidation("username query parameter is required"))
		return
	}
	m, err := h.members.GetByUsername(c.Request.Context(), username)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MemberIDResponse{MemberID: m.ID})
}

// Balance returns the member's balance.
func (h *MemberHandler) Balance(c *gin.Context) {
	m, ok := h.memberFromQuery(c)
	if !ok {
		return
	}
	h.OK(c, dto.BalanceResponse{
		MemberID:       m.ID,
		Balance:        int64(m.Balance),
		BalanceDisplay: m.BalanceDisplay(),
	})
}

// Info returns the member row plus recent sales.
func (h *MemberHandler) Info(c *gin.Context) {
	m, ok := h.memberFromQuery(c)
	if !ok {
		return
	}
	sales, err := h.sales.ListRecent(c.Request.Context(), m.ID, time.Time{})
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(sales) > 10 {
		sales = sales[:10]
	}
	h.OK(c, dto.NewUserInfoResponse(m, sales, m.Balance <= lowBalanceThreshold))
}

// Sales lists the member's purchases newest first.
func (h *MemberHandler) Sales(c *gin.Context) {
	m, ok := h.memberFromQuery(c)
	if !ok {
		return
	}
	sales, err := h.sales.ListRecent(c.Request.Context(), m.ID, time.Time{})
	if err != nil {
		h.Error(c, err)
		return
	}
	lines := make([]dto.SaleLine, 0, len(sales))
	for _, s := range sales {
		lines = append(lines, dto.SaleLine{ID: s.ID, ProductID: s.ProductID, Price: int64(s.Price), Timestamp: s.Timestamp})
	}
	h.OK(c, lines)
}

// PaymentQR renders a QR code for the mobile-pay top-up deep link.
// amount is optional, in kroner ("50.00").
func (h *MemberHandler) PaymentQR(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		h.Error(c, apperror.NewValidation("username query parameter is required"))
		return
	}
	var amount kroner.Oere
	if raw := c.Query("amount"); raw != "" {
		parsed, err := kroner.ParseKroner(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid amount").WithDetail("value", raw))
			return
		}
		amount = parsed
	}

	png, err := qrcode.Encode(member.MobilePayURI(username, amount), qrcode.Medium, 256)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Heatmap builds the purchase heatmap grid view model.
func (h *MemberHandler) Heatmap(c *gin.Context) {
	m, ok := h.memberFromQuery(c)
	if !ok {
		return
	}
	weeks := h.ParseIntQuery(c, "weeks", 10)
	grid, err := h.heatmaps.Build(c.Request.Context(), m.ID, weeks, time.Now())
	if err != nil {
		h.Error(c, err)
		return
	}

	modes := make([]gin.H, 0, len(grid.Modes))
	for _, mode := range grid.Modes {
		modes = append(modes, gin.H{"name": mode.Name(), "description": mode.Description()})
	}
	h.OK(c, gin.H{
		"columnLabels": grid.ColumnLabels,
		"rowLabels":    grid.RowLabels,
		"rows":         grid.Rows,
		"modes":        modes,
	})
}

func (h *MemberHandler) memberFromQuery(c *gin.Context) (*member.Member, bool) {
	id := h.ParseIntQuery(c, "member_id", 0)
	if id == 0 {
		h.Error(c, apperror.NewValidation("member_id query parameter is required"))
		return nil, false
	}
	m, err := h.members.GetByID(c.Request.Context(), int64(id))
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return m, true
}
