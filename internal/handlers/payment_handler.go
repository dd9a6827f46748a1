package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/middleware"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/internal/services"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

type PaymentHandler struct {
	reconciliationService *services.ReconciliationService
	loanService           *services.LoanService
}

func NewPaymentHandler(reconciliationService *services.ReconciliationService, loanService *services.LoanService) *PaymentHandler {
	return &PaymentHandler{reconciliationService: reconciliationService, loanService: loanService}
}

type createPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate   string          `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	Notes         *string         `json:"notes"`
}

// Create registers a payment against a loan. Late fee, interest and
// principal are allocated server side; the caller only tenders an amount.
func (h *PaymentHandler) Create(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req createPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		d, err := dates.Parse(req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Fecha de pago inválida"})
			return
		}
		paymentDate = d
	}

	payment, installments, err := h.reconciliationService.RegisterPayment(c.Request.Context(), loanID, services.RegisterPaymentRequest{
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Actor:         middleware.GetUserEmail(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	var instResponses []interface{}
	for _, inst := range installments {
		instResponses = append(instResponses, inst.ToResponse())
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment":      payment.ToResponse(),
		"installments": instResponses,
	})
}

// Delete removes a payment and replays the loan's surviving payments
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, ok := parseIDParam(c, "payment_id")
	if !ok {
		return
	}

	loan, installments, err := h.reconciliationService.RemovePayment(c.Request.Context(), paymentID, middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var instResponses []interface{}
	for _, inst := range installments {
		instResponses = append(instResponses, inst.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{
		"loan":         loan.ToResponse(),
		"installments": instResponses,
	})
}

// Index returns a paginated list of payments
func (h *PaymentHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	if raw := c.Query("loan_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			query.LoanID = uint(id)
		}
	}

	payments, total, err := h.loanService.ListPayments(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, p := range payments {
		responses = append(responses, p.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}
