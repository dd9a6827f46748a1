package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/pkg/dates"
	"github.com/jgrullon/credimax-api/pkg/logger"
)

// InstallmentFee is the accrued late fee for one overdue installment.
type InstallmentFee struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	DaysOverdue       int             `json:"days_overdue"`
	EffectiveDays     int             `json:"effective_days"`
	Accrued           decimal.Decimal `json:"accrued"`
}

// LateFeeBreakdown is the aggregate late fee owed on a loan as of a
// given date, with the per-installment detail behind it.
type LateFeeBreakdown struct {
	Total          decimal.Decimal  `json:"total"`
	PerInstallment []InstallmentFee `json:"per_installment"`
}

// LateFeeService computes accrued late fees from a loan's policy and
// its installment snapshots. Pure: identical inputs and asOf yield
// identical output.
type LateFeeService struct{}

// NewLateFeeService creates a new late fee service
func NewLateFeeService() *LateFeeService {
	return &LateFeeService{}
}

var one = decimal.NewFromInt(1)

// ValidatePolicy rejects an unusable late-fee policy before any
// computation runs. Callers surface the error and perform no writes.
func (s *LateFeeService) ValidatePolicy(loan *models.Loan) error {
	if !loan.LateFeeEnabled {
		return nil
	}
	if loan.LateFeeRate.IsNegative() {
		return fmt.Errorf("%w: tasa de mora negativa", ErrInvalidPolicy)
	}
	if loan.GracePeriodDays < 0 {
		return fmt.Errorf("%w: período de gracia negativo", ErrInvalidPolicy)
	}
	switch loan.LateFeeCalculationType {
	case models.LateFeeCalcDaily, models.LateFeeCalcMonthly, models.LateFeeCalcCompound:
		return nil
	default:
		return fmt.Errorf("%w: tipo de cálculo desconocido %q", ErrInvalidPolicy, loan.LateFeeCalculationType)
	}
}

// Compute returns the aggregate accrued fee and its per-installment
// breakdown as of asOf. A paid loan always reports zero: settlement
// extinguishes accrual regardless of due dates.
func (s *LateFeeService) Compute(loan *models.Loan, installments []models.Installment, asOf time.Time) (*LateFeeBreakdown, error) {
	if err := s.ValidatePolicy(loan); err != nil {
		return nil, err
	}

	breakdown := &LateFeeBreakdown{Total: decimal.Zero}
	if !loan.LateFeeEnabled || loan.IsPaid() {
		return breakdown, nil
	}

	asOf = dates.Truncate(asOf)
	for _, inst := range installments {
		if inst.Satisfied() {
			continue
		}
		if inst.DueDate.IsZero() {
			logger.Warn("installment due date missing, skipped from accrual",
				"loan_id", loan.ID, "installment", inst.InstallmentNumber)
			continue
		}
		daysOverdue := dates.DaysBetween(inst.DueDate, asOf)
		if daysOverdue <= 0 {
			continue
		}
		effectiveDays := daysOverdue - loan.GracePeriodDays
		if effectiveDays <= 0 {
			// Still within grace.
			continue
		}

		fee, err := s.accrue(loan, feeBasis(&inst), effectiveDays)
		if err != nil {
			return nil, err
		}
		if loan.MaxLateFee.IsPositive() && fee.GreaterThan(loan.MaxLateFee) {
			fee = loan.MaxLateFee
		}
		fee = fee.Sub(inst.LateFeePaid)
		if fee.IsNegative() {
			fee = decimal.Zero
		}

		breakdown.PerInstallment = append(breakdown.PerInstallment, InstallmentFee{
			InstallmentNumber: inst.InstallmentNumber,
			DueDate:           dates.Truncate(inst.DueDate),
			DaysOverdue:       daysOverdue,
			EffectiveDays:     effectiveDays,
			Accrued:           fee,
		})
		breakdown.Total = breakdown.Total.Add(fee)
	}
	return breakdown, nil
}

// accrue applies the configured calculation policy for one installment.
func (s *LateFeeService) accrue(loan *models.Loan, basis decimal.Decimal, effectiveDays int) (decimal.Decimal, error) {
	rate := loan.LateFeeRate.Div(hundred)
	days := decimal.NewFromInt(int64(effectiveDays))

	switch loan.LateFeeCalculationType {
	case models.LateFeeCalcDaily:
		return basis.Mul(rate).Mul(days), nil
	case models.LateFeeCalcMonthly:
		months := (effectiveDays + 29) / 30
		return basis.Mul(rate).Mul(decimal.NewFromInt(int64(months))), nil
	case models.LateFeeCalcCompound:
		factor := one.Add(rate).Pow(days)
		return basis.Mul(factor.Sub(one)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: tipo de cálculo desconocido %q", ErrInvalidPolicy, loan.LateFeeCalculationType)
	}
}

// feeBasis returns the amount the fee accrues on: the installment's
// scheduled principal, or the interest for the interest-only
// installments of an indefinite loan.
func feeBasis(inst *models.Installment) decimal.Decimal {
	if inst.PrincipalAmount.IsPositive() {
		return inst.PrincipalAmount
	}
	return inst.InterestAmount
}
