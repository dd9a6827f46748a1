package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

// ScheduleService derives the theoretical installment list for a loan.
// All functions are pure: the same loan and asOf date always produce
// the same due-date sequence.
type ScheduleService struct{}

// NewScheduleService creates a new schedule service
func NewScheduleService() *ScheduleService {
	return &ScheduleService{}
}

var hundred = decimal.NewFromInt(100)

// GenerateSchedule builds the installment list from the loan's
// origination fields. For fixed loans the count is term_months; for
// indefinite loans it is the number of periods elapsed since the first
// payment date as of asOf, with a floor of one.
//
// Interest is flat: charged on the original principal every period,
// never on the declining balance.
func (s *ScheduleService) GenerateSchedule(loan *models.Loan, asOf time.Time) ([]models.Installment, error) {
	if err := s.validate(loan); err != nil {
		return nil, err
	}

	interestPer := loan.Amount.Mul(loan.InterestRate).Div(hundred)
	anchor := loan.ScheduleAnchor()

	var count int
	principalPer := decimal.Zero
	if loan.IsIndefinite() {
		count = dates.PeriodsDue(anchor, loan.PaymentFrequency, dates.Truncate(asOf))
	} else {
		count = loan.TermMonths
		principalPer = loan.Amount.Div(decimal.NewFromInt(int64(loan.TermMonths)))
	}

	installments := make([]models.Installment, 0, count)
	for i := 0; i < count; i++ {
		installments = append(installments, models.Installment{
			LoanID:            loan.ID,
			InstallmentNumber: i + 1,
			DueDate:           dates.Step(anchor, loan.PaymentFrequency, i),
			PrincipalAmount:   principalPer,
			InterestAmount:    interestPer,
			PrincipalPaid:     decimal.Zero,
			InterestPaid:      decimal.Zero,
			LateFeePaid:       decimal.Zero,
			Status:            models.InstallmentStatusPending,
		})
	}
	return installments, nil
}

// PeriodicPayment returns the fixed obligation per period:
// principal/term + flat interest for fixed loans, interest only for
// indefinite loans.
func (s *ScheduleService) PeriodicPayment(loan *models.Loan) (decimal.Decimal, error) {
	if err := s.validate(loan); err != nil {
		return decimal.Zero, err
	}
	interestPer := loan.Amount.Mul(loan.InterestRate).Div(hundred)
	if loan.IsIndefinite() {
		return interestPer, nil
	}
	principalPer := loan.Amount.Div(decimal.NewFromInt(int64(loan.TermMonths)))
	return principalPer.Add(interestPer), nil
}

// Overlay merges persisted installment rows onto a derived schedule,
// matched by installment number, so real paid history survives
// re-derivation. Derived rows without a persisted counterpart keep a
// zero ID until a payment touches them.
func (s *ScheduleService) Overlay(derived, persisted []models.Installment) []models.Installment {
	byNumber := make(map[int]models.Installment, len(persisted))
	for _, inst := range persisted {
		byNumber[inst.InstallmentNumber] = inst
	}
	merged := make([]models.Installment, 0, len(derived))
	for _, inst := range derived {
		if row, ok := byNumber[inst.InstallmentNumber]; ok {
			merged = append(merged, row)
			delete(byNumber, inst.InstallmentNumber)
			continue
		}
		merged = append(merged, inst)
	}
	// Persisted rows beyond the derived horizon (e.g. a payment made
	// against a future period) still belong to the schedule.
	for _, row := range byNumber {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(a, b int) bool {
		return merged[a].InstallmentNumber < merged[b].InstallmentNumber
	})
	return merged
}

func (s *ScheduleService) validate(loan *models.Loan) error {
	if !loan.Amount.IsPositive() {
		return fmt.Errorf("%w: el monto debe ser positivo", ErrInvalidSchedule)
	}
	if loan.InterestRate.IsNegative() {
		return fmt.Errorf("%w: la tasa no puede ser negativa", ErrInvalidSchedule)
	}
	if !loan.PaymentFrequency.Valid() {
		return fmt.Errorf("%w: frecuencia desconocida %q", ErrInvalidSchedule, loan.PaymentFrequency)
	}
	if !loan.IsIndefinite() && loan.TermMonths <= 0 {
		return fmt.Errorf("%w: el plazo debe ser positivo", ErrInvalidSchedule)
	}
	return nil
}
