package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/physiology"
	"stregsystem/internal/domain/report"
	"stregsystem/internal/infrastructure/http/v1/dto"
	"stregsystem/pkg/logger"
)

// lowBalanceThreshold flags the user page when a top-up is due.
const lowBalanceThreshold kroner.Oere = 5000

// SaleHandler serves the room terminal: quickbuy and the user page.
type SaleHandler struct {
	*BaseHandler
	orders   *order.Service
	members  *member.Service
	sales    order.Repository
	payments *payment.Service
	physio   *physiology.Service
	reports  *report.Service
	// caffeineCategoryID drives the coffee-master flag; zero disables it.
	caffeineCategoryID int64
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(
	base *BaseHandler,
	orders *order.Service,
	members *member.Service,
	sales order.Repository,
	payments *payment.Service,
	physio *physiology.Service,
	reports *report.Service,
	caffeineCategoryID int64,
) *SaleHandler {
	return &SaleHandler{
		BaseHandler:        base,
		orders:             orders,
		members:            members,
		sales:              sales,
		payments:           payments,
		physio:             physio,
		reports:            reports,
		caffeineCategoryID: caffeineCategoryID,
	}
}

// RegisterRoutes registers the room terminal endpoints.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:room_id/sale", h.QuickBuy)
	rg.GET("/:room_id/user/:member_id", h.UserInfo)
}

// QuickBuy executes one terminal line in the room.
func (h *SaleHandler) QuickBuy(c *gin.Context) {
	roomID, ok := h.ParseIDParam(c, "room_id")
	if !ok {
		return
	}
	var req dto.QuickBuyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	result, err := h.orders.QuickBuy(ctx, roomID, req.QuickBuy)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.NewQuickBuyResponse(result)
	h.decorate(c, result, resp)
	h.OK(c, resp)
}

// decorate adds the after-sale context lines: multibuy hint, blood
// alcohol, caffeine and the coffee-master flag. All of it is best-effort
// garnish; failures are logged and the sale response still goes out.
func (h *SaleHandler) decorate(c *gin.Context, result *order.QuickBuyResult, resp *dto.QuickBuyResponse) {
	ctx := c.Request.Context()

	if result.Order == nil {
		if ok, hint, err := h.orders.MultibuyHint(ctx, result.Member); err == nil && ok {
			resp.MultibuyHint = hint
		}
		return
	}

	hasAlcohol, hasCaffeine := false, false
	for _, it := range result.Order.Items {
		if it.Product.AlcoholContentML > 0 {
			hasAlcohol = true
		}
		if it.Product.CaffeineContentMG > 0 {
			hasCaffeine = true
		}
	}

	if hasAlcohol {
		if promille, err := h.physio.Promille(ctx, result.Member); err == nil {
			resp.Promille = &promille
		} else {
			logger.Warn(ctx, "promille lookup failed", "member_id", result.Member.ID, "error", err)
		}
	}
	if hasCaffeine {
		mg, cups, err := h.physio.Caffeine(ctx, result.Member.ID)
		if err != nil {
			logger.Warn(ctx, "caffeine lookup failed", "member_id", result.Member.ID, "error", err)
		} else {
			resp.CaffeineMG = &mg
			resp.CaffeineCups = &cups
		}
		if h.caffeineCategoryID != 0 {
			if master, err := h.reports.IsCoffeeMaster(ctx, result.Member.ID, h.caffeineCategoryID); err == nil {
				resp.IsCoffeeMaster = master
			}
		}
	}
}

// UserInfo renders the member's recent activity on the room user page.
func (h *SaleHandler) UserInfo(c *gin.Context) {
	if _, ok := h.ParseIDParam(c, "room_id"); !ok {
		return
	}
	memberID, ok := h.ParseIDParam(c, "member_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	m, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		h.Error(c, err)
		return
	}

	sales, err := h.sales.ListRecent(ctx, m.ID, time.Time{})
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(sales) > 10 {
		sales = sales[:10]
	}

	resp := dto.NewUserInfoResponse(m, sales, m.Balance <= lowBalanceThreshold)
	if last, err := h.payments.LastPayment(ctx, m.ID); err == nil {
		resp.LastPayment = &dto.PaymentLine{ID: last.ID, Amount: int64(last.Amount), Timestamp: last.Timestamp}
	} else if !apperror.IsNotFound(err) {
		logger.Warn(ctx, "last payment lookup failed", "member_id", m.ID, "error", err)
	}
	h.OK(c, resp)
}
