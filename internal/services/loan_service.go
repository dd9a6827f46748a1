package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/pkg/dates"
	"github.com/jgrullon/credimax-api/pkg/logger"
)

// LoanService manages loan lifecycle: creation with its generated
// schedule, detail reads with derived installments overlaid, listings
// and the ledger view. Aggregate mutation belongs to the
// reconciliation service, not here.
type LoanService struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	paymentRepo     repository.PaymentRepository
	ledgerRepo      repository.LedgerRepository
	scheduleSvc     *ScheduleService
	lateFeeSvc      *LateFeeService
	auditSvc        *AuditService
}

// NewLoanService creates a new loan service
func NewLoanService(
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	scheduleSvc *ScheduleService,
	lateFeeSvc *LateFeeService,
	auditSvc *AuditService,
) *LoanService {
	return &LoanService{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
		ledgerRepo:      ledgerRepo,
		scheduleSvc:     scheduleSvc,
		lateFeeSvc:      lateFeeSvc,
		auditSvc:        auditSvc,
	}
}

// CreateLoanRequest carries the fields needed to open a loan.
type CreateLoanRequest struct {
	ClientName       string          `json:"client_name" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	TermMonths       int             `json:"term_months"`
	PaymentFrequency string          `json:"payment_frequency"`
	AmortizationType string          `json:"amortization_type"`
	StartDate        string          `json:"start_date" binding:"required"`
	FirstPaymentDate *string         `json:"first_payment_date"`

	LateFeeEnabled         bool            `json:"late_fee_enabled"`
	LateFeeRate            decimal.Decimal `json:"late_fee_rate"`
	GracePeriodDays        int             `json:"grace_period_days"`
	MaxLateFee             decimal.Decimal `json:"max_late_fee"`
	LateFeeCalculationType string          `json:"late_fee_calculation_type"`

	Actor string `json:"-"`
}

// Create validates the request, persists the loan and generates its
// initial schedule. Fixed loans persist every installment up front;
// indefinite loans persist only the first, the rest stay derived until
// a payment touches them.
func (s *LoanService) Create(ctx context.Context, req *CreateLoanRequest) (*models.Loan, error) {
	startDate, err := dates.Parse(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha de inicio inválida %q", ErrInvalidSchedule, req.StartDate)
	}

	loan := &models.Loan{
		ClientName:       req.ClientName,
		Amount:           req.Amount,
		InterestRate:     req.InterestRate,
		TermMonths:       req.TermMonths,
		PaymentFrequency: dates.Frequency(req.PaymentFrequency),
		AmortizationType: req.AmortizationType,
		StartDate:        startDate,
		RemainingBalance: req.Amount,
		Status:           models.LoanStatusActive,

		LateFeeEnabled:         req.LateFeeEnabled,
		LateFeeRate:            req.LateFeeRate,
		GracePeriodDays:        req.GracePeriodDays,
		MaxLateFee:             req.MaxLateFee,
		LateFeeCalculationType: req.LateFeeCalculationType,
	}
	if loan.PaymentFrequency == "" {
		loan.PaymentFrequency = dates.FrequencyMonthly
	}
	if loan.AmortizationType == "" {
		loan.AmortizationType = models.AmortizationFixed
	}
	if loan.LateFeeCalculationType == "" {
		loan.LateFeeCalculationType = models.LateFeeCalcDaily
	}
	if req.FirstPaymentDate != nil {
		fp, err := dates.Parse(*req.FirstPaymentDate)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha de primer pago inválida %q", ErrInvalidSchedule, *req.FirstPaymentDate)
		}
		loan.FirstPaymentDate = &fp
	}

	if err := s.lateFeeSvc.ValidatePolicy(loan); err != nil {
		return nil, err
	}

	schedule, err := s.scheduleSvc.GenerateSchedule(loan, dates.Today())
	if err != nil {
		return nil, err
	}
	loan.MonthlyPayment, err = s.scheduleSvc.PeriodicPayment(loan)
	if err != nil {
		return nil, err
	}
	next := loan.ScheduleAnchor()
	loan.NextPaymentDate = &next

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	persist := schedule
	if loan.IsIndefinite() && len(schedule) > 0 {
		persist = schedule[:1]
	}
	for i := range persist {
		persist[i].LoanID = loan.ID
	}
	if err := s.installmentRepo.CreateBatch(ctx, persist); err != nil {
		return nil, fmt.Errorf("failed to create installments: %w", err)
	}

	s.auditSvc.Log(ctx, req.Actor, "CREATE", "Loan", loan.ID,
		fmt.Sprintf("Préstamo creado: %s por %s", loan.ClientName, loan.Amount.StringFixed(2)), "", "")

	logger.Info("loan created",
		"loan_id", loan.ID, "client", loan.ClientName,
		"amount", loan.Amount.String(),
		"type", loan.AmortizationType,
		"installments", len(persist))

	return loan, nil
}

// Delete removes a loan together with its installments, payments and
// ledger entries. Destructive and unrecoverable, which is why the
// route sits behind the admin role.
func (s *LoanService) Delete(ctx context.Context, loanID uint, actor string) error {
	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}

	if err := s.ledgerRepo.DeleteByLoanID(ctx, loanID); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	if err := s.paymentRepo.DeleteByLoan(ctx, loanID); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if err := s.installmentRepo.DeleteByLoan(ctx, loanID); err != nil {
		return fmt.Errorf("failed to delete installments: %w", err)
	}
	if err := s.loanRepo.Delete(ctx, loanID); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "DELETE", "Loan", loanID,
		fmt.Sprintf("Préstamo eliminado: %s por %s", loan.ClientName, loan.Amount.StringFixed(2)), "", "")

	logger.Info("loan deleted", "loan_id", loanID, "client", loan.ClientName)
	return nil
}

// FindWithSchedule returns the loan with its full schedule as of asOf:
// persisted installments overlaid on the derived ones for indefinite
// loans, plus the current late fee breakdown.
func (s *LoanService) FindWithSchedule(ctx context.Context, loanID uint, asOf time.Time) (*models.Loan, []models.Installment, *LateFeeBreakdown, error) {
	loan, err := s.loanRepo.FindByIDWithDetails(ctx, loanID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}

	installments := loan.Installments
	if loan.IsIndefinite() {
		derived, err := s.scheduleSvc.GenerateSchedule(loan, asOf)
		if err != nil {
			return nil, nil, nil, err
		}
		installments = s.scheduleSvc.Overlay(derived, loan.Installments)
	}

	fees, err := s.lateFeeSvc.Compute(loan, installments, asOf)
	if err != nil {
		return nil, nil, nil, err
	}
	return loan, installments, fees, nil
}

// LateFee computes the current late fee breakdown for a loan.
func (s *LoanService) LateFee(ctx context.Context, loanID uint, asOf time.Time) (*LateFeeBreakdown, error) {
	_, _, fees, err := s.FindWithSchedule(ctx, loanID, asOf)
	return fees, err
}

// List returns loans matching the query.
func (s *LoanService) List(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return s.loanRepo.List(ctx, query)
}

// ListPayments returns payments matching the query.
func (s *LoanService) ListPayments(ctx context.Context, query *repository.ListQuery) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(ctx, query)
}

// Ledger returns the loan's audit trail of balance-affecting events.
func (s *LoanService) Ledger(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error) {
	if _, err := s.loanRepo.FindByID(ctx, loanID); err != nil {
		return nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	return s.ledgerRepo.FindByLoanID(ctx, loanID)
}
