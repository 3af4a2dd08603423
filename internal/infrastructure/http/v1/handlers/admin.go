package handlers

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/auth"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/report"
	"stregsystem/internal/infrastructure/http/v1/dto"
)

// AdminHandler serves the operator tools: batch payments, the
// mobile-payment tool, reimbursements and the sales reports.
type AdminHandler struct {
	*BaseHandler
	payments *payment.Service
	reports  *report.Service
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(base *BaseHandler, payments *payment.Service, reports *report.Service) *AdminHandler {
	return &AdminHandler{BaseHandler: base, payments: payments, reports: reports}
}

// RegisterPaymentRoutes registers the payment tool endpoints.
func (h *AdminHandler) RegisterPaymentRoutes(rg *gin.RouterGroup) {
	rg.POST("/batch", h.BatchPayment)
	rg.POST("/import", h.ImportCSV)
	rg.GET("/tool", h.PaymentToolRows)
	rg.POST("/tool", h.PaymentToolSubmit)
	rg.POST("/reimburse", h.Reimburse)
}

// RegisterReportRoutes registers the sales report endpoints.
func (h *AdminHandler) RegisterReportRoutes(rg *gin.RouterGroup) {
	rg.GET("/ranks", h.Ranks)
	rg.POST("/sales", h.SalesSummary)
}

// BatchPayment credits several members in one submission.
func (h *AdminHandler) BatchPayment(c *gin.Context) {
	var req dto.BatchPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	for _, entry := range req.Payments {
		notes := entry.Notes
		if notes == "" {
			notes = "batch payment"
		}
		if _, err := h.payments.RecordPayment(ctx, entry.MemberID, kroner.Oere(entry.Amount), notes); err != nil {
			h.Error(c, err)
			return
		}
	}
	h.OK(c, dto.CountResponse{Count: len(req.Payments)})
}

// ImportCSV records mobile payments from an exported CSV file. The file
// arrives as the "file" part of a multipart form.
func (h *AdminHandler) ImportCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("missing csv file upload"))
		return
	}
	defer file.Close()

	imported, duplicates, err := h.payments.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"imported": imported, "duplicates": duplicates})
}

// PaymentToolRows lists the unprocessed mobile payments.
func (h *AdminHandler) PaymentToolRows(c *gin.Context) {
	rows, err := h.payments.ListUnprocessed(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// PaymentToolSubmit applies the operator's batch of decisions. A stale
// batch is rejected with the conflicting transaction ids.
func (h *AdminHandler) PaymentToolSubmit(c *gin.Context) {
	var req dto.PaymentToolRequest
	if !h.BindJSON(c, &req) {
		return
	}
	applied, err := h.payments.ApplySubmitted(c.Request.Context(), req.ToDecisions(), h.actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: applied})
}

// Reimburse undoes a sale: credit back, row deleted, unit restocked.
func (h *AdminHandler) Reimburse(c *gin.Context) {
	var req dto.ReimburseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.payments.ReimburseSale(c.Request.Context(), req.SaleID, h.actor(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Ranks renders the yearly money and category rankings. The year defaults
// to the running fjule-party year.
func (h *AdminHandler) Ranks(c *gin.Context) {
	year := h.ParseIntQuery(c, "year", h.reports.RanksDefaultYear())
	money, categories, err := h.reports.Ranks(c.Request.Context(), year)
	if err != nil {
		h.Error(c, err)
		return
	}
	resp := dto.RanksResponse{Year: year, Money: money}
	for _, cr := range categories {
		resp.Categories = append(resp.Categories, dto.CategoryRanks{
			CategoryID: cr.Category.ID,
			Name:       cr.Category.Name,
			Ranks:      cr.Ranks,
		})
	}
	h.OK(c, resp)
}

// SalesSummary reports per-product counts and totals in a window.
func (h *AdminHandler) SalesSummary(c *gin.Context) {
	var req dto.SalesSummaryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rows, err := h.reports.SalesSummary(c.Request.Context(), req.ProductIDs, req.From, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

func (h *AdminHandler) actor(c *gin.Context) string {
	if operator := auth.OperatorFrom(c.Request.Context()); operator != nil {
		return operator.Username
	}
	return ""
}
