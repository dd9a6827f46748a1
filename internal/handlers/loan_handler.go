package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/middleware"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/internal/services"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

type LoanHandler struct {
	loanService           *services.LoanService
	reconciliationService *services.ReconciliationService
}

func NewLoanHandler(loanService *services.LoanService, reconciliationService *services.ReconciliationService) *LoanHandler {
	return &LoanHandler{loanService: loanService, reconciliationService: reconciliationService}
}

// Index returns a paginated list of loans
func (h *LoanHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Status = c.Query("status")
	query.Search = c.Query("search_term")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	loans, total, err := h.loanService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, l := range loans {
		responses = append(responses, l.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// Create opens a loan and generates its payment schedule
func (h *LoanHandler) Create(c *gin.Context) {
	var req services.CreateLoanRequest
	if err := BindNestedOrFlat(c, "loan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	req.Actor = middleware.GetUserEmail(c)

	loan, err := h.loanService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan": loan.ToResponse()})
}

// Delete removes a loan and everything recorded against it
func (h *LoanHandler) Delete(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	if err := h.loanService.Delete(c.Request.Context(), loanID, middleware.GetUserEmail(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Préstamo eliminado"})
}

// Show returns a loan with its schedule and current late fee
func (h *LoanHandler) Show(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}
	asOf := parseAsOf(c)

	loan, installments, fees, err := h.loanService.FindWithSchedule(c.Request.Context(), loanID, asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := loan.ToResponse()
	resp.Installments = nil
	for _, inst := range installments {
		resp.Installments = append(resp.Installments, inst.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"loan": resp, "late_fee": fees})
}

// Schedule returns the loan's installment schedule as of a date
func (h *LoanHandler) Schedule(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}
	asOf := parseAsOf(c)

	_, installments, _, err := h.loanService.FindWithSchedule(c.Request.Context(), loanID, asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, inst := range installments {
		responses = append(responses, inst.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"installments": responses, "as_of": dates.Format(asOf)})
}

// LateFee returns the current late fee breakdown for a loan
func (h *LoanHandler) LateFee(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}
	asOf := parseAsOf(c)

	fees, err := h.loanService.LateFee(c.Request.Context(), loanID, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"late_fee": fees, "as_of": dates.Format(asOf)})
}

// Ledger returns the loan's trail of balance-affecting events
func (h *LoanHandler) Ledger(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	entries, err := h.loanService.Ledger(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for _, e := range entries {
		responses = append(responses, e.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"ledger": responses})
}

type chargeRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// Charge adds an ad-hoc charge to the loan balance
func (h *LoanHandler) Charge(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req chargeRequest
	if err := BindNestedOrFlat(c, "charge", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	entry, err := h.reconciliationService.AddCharge(c.Request.Context(), loanID, req.Amount, req.Description, middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry.ToResponse()})
}

type waiveRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

// WaiveLateFee forgives part or all of the accrued late fee
func (h *LoanHandler) WaiveLateFee(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req waiveRequest
	if err := BindNestedOrFlat(c, "waiver", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	entry, err := h.reconciliationService.WaiveLateFee(c.Request.Context(), loanID, req.Amount, req.Reason, middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry.ToResponse()})
}

type capitalPaydownRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Notes  *string         `json:"notes"`
}

// CapitalPaydown applies a principal-only payment to the loan
func (h *LoanHandler) CapitalPaydown(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req capitalPaydownRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	payment, installments, err := h.reconciliationService.CapitalPaydown(c.Request.Context(), loanID, req.Amount, req.Notes, middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var instResponses []interface{}
	for _, inst := range installments {
		instResponses = append(instResponses, inst.ToResponse())
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment.ToResponse(), "installments": instResponses})
}

// Settle closes the loan, marking outstanding installments settled
func (h *LoanHandler) Settle(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	loan, err := h.reconciliationService.Settle(c.Request.Context(), loanID, middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// parseIDParam reads a numeric path parameter, answering 400 on garbage.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identificador inválido"})
		return 0, false
	}
	return uint(id), true
}

// parseAsOf reads the optional as_of query date, defaulting to today.
func parseAsOf(c *gin.Context) time.Time {
	if raw := c.Query("as_of"); raw != "" {
		if d, err := dates.Parse(raw); err == nil {
			return d
		}
	}
	return dates.Today()
}
