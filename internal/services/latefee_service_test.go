package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

func lateFeeLoan() *models.Loan {
	return &models.Loan{
		ID:                     3,
		ClientName:             "Pedro Marte",
		Amount:                 decimal.NewFromInt(10000),
		InterestRate:           decimal.NewFromInt(5),
		TermMonths:             4,
		PaymentFrequency:       dates.FrequencyMonthly,
		AmortizationType:       models.AmortizationFixed,
		StartDate:              dates.New(2024, time.January, 1),
		Status:                 models.LoanStatusActive,
		LateFeeEnabled:         true,
		LateFeeRate:            decimal.NewFromInt(2),
		GracePeriodDays:        5,
		LateFeeCalculationType: models.LateFeeCalcDaily,
	}
}

func overdueInstallment(number int, dueDate time.Time) models.Installment {
	return models.Installment{
		InstallmentNumber: number,
		DueDate:           dueDate,
		PrincipalAmount:   decimal.NewFromInt(2500),
		InterestAmount:    decimal.NewFromInt(500),
		PrincipalPaid:     decimal.Zero,
		InterestPaid:      decimal.Zero,
		LateFeePaid:       decimal.Zero,
		Status:            models.InstallmentStatusPending,
	}
}

func TestComputeDaily(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()

	// Due 10 days ago, 5 days grace: fee accrues on 5 effective days.
	asOf := dates.New(2024, time.February, 11)
	installments := []models.Installment{overdueInstallment(1, dates.New(2024, time.February, 1))}

	fees, err := svc.Compute(loan, installments, asOf)
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromInt(250)), "got %s", fees.Total)
	assert.Len(t, fees.PerInstallment, 1)
	assert.Equal(t, 10, fees.PerInstallment[0].DaysOverdue)
	assert.Equal(t, 5, fees.PerInstallment[0].EffectiveDays)
}

func TestComputeWithinGrace(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()

	// Exactly at the grace boundary no fee accrues yet.
	asOf := dates.New(2024, time.February, 6)
	installments := []models.Installment{overdueInstallment(1, dates.New(2024, time.February, 1))}

	fees, err := svc.Compute(loan, installments, asOf)
	assert.NoError(t, err)
	assert.True(t, fees.Total.IsZero())
	assert.Empty(t, fees.PerInstallment)
}

func TestComputeMonthlyRoundsPartialMonthsUp(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	loan.LateFeeCalculationType = models.LateFeeCalcMonthly
	loan.GracePeriodDays = 0

	installments := []models.Installment{overdueInstallment(1, dates.New(2024, time.January, 1))}

	// 31 effective days is two billing months.
	fees, err := svc.Compute(loan, installments, dates.New(2024, time.February, 1))
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromInt(100)), "got %s", fees.Total)

	// 30 effective days is one.
	fees, err = svc.Compute(loan, installments, dates.New(2024, time.January, 31))
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromInt(50)), "got %s", fees.Total)
}

func TestComputeCompound(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	loan.LateFeeCalculationType = models.LateFeeCalcCompound
	loan.LateFeeRate = decimal.NewFromInt(1)
	loan.GracePeriodDays = 0

	inst := overdueInstallment(1, dates.New(2024, time.January, 1))
	inst.PrincipalAmount = decimal.NewFromInt(1000)

	// 1000 * ((1.01)^3 - 1) = 30.301
	fees, err := svc.Compute(loan, []models.Installment{inst}, dates.New(2024, time.January, 4))
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromFloat(30.301)), "got %s", fees.Total)
}

func TestComputeCapsPerInstallment(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	loan.MaxLateFee = decimal.NewFromInt(100)

	installments := []models.Installment{
		overdueInstallment(1, dates.New(2024, time.January, 1)),
		overdueInstallment(2, dates.New(2024, time.February, 1)),
	}

	// Both installments accrue far beyond the cap; each is clamped
	// independently, so the total is twice the cap.
	fees, err := svc.Compute(loan, installments, dates.New(2024, time.June, 1))
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromInt(200)), "got %s", fees.Total)
}

func TestComputeSubtractsFeeAlreadyPaid(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()

	inst := overdueInstallment(1, dates.New(2024, time.February, 1))
	inst.LateFeePaid = decimal.NewFromInt(100)

	fees, err := svc.Compute(loan, []models.Installment{inst}, dates.New(2024, time.February, 11))
	assert.NoError(t, err)
	assert.True(t, fees.Total.Equal(decimal.NewFromInt(150)), "got %s", fees.Total)

	// Paid beyond the accrual floors at zero, never negative.
	inst.LateFeePaid = decimal.NewFromInt(500)
	fees, err = svc.Compute(loan, []models.Installment{inst}, dates.New(2024, time.February, 11))
	assert.NoError(t, err)
	assert.True(t, fees.Total.IsZero())
}

func TestComputeSkipsSatisfiedInstallments(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()

	paid := overdueInstallment(1, dates.New(2024, time.January, 1))
	paid.IsPaid = true
	settled := overdueInstallment(2, dates.New(2024, time.February, 1))
	settled.IsSettled = true

	fees, err := svc.Compute(loan, []models.Installment{paid, settled}, dates.New(2024, time.June, 1))
	assert.NoError(t, err)
	assert.True(t, fees.Total.IsZero())
}

func TestComputeDisabledPolicy(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	loan.LateFeeEnabled = false

	installments := []models.Installment{overdueInstallment(1, dates.New(2024, time.January, 1))}
	fees, err := svc.Compute(loan, installments, dates.New(2024, time.June, 1))
	assert.NoError(t, err)
	assert.True(t, fees.Total.IsZero())
}

func TestComputePaidLoanAccruesNothing(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	loan.Status = models.LoanStatusPaid

	installments := []models.Installment{overdueInstallment(1, dates.New(2024, time.January, 1))}
	fees, err := svc.Compute(loan, installments, dates.New(2024, time.June, 1))
	assert.NoError(t, err)
	assert.True(t, fees.Total.IsZero())
}

func TestComputeIsIdempotent(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()
	asOf := dates.New(2024, time.March, 10)
	installments := []models.Installment{
		overdueInstallment(1, dates.New(2024, time.February, 1)),
		overdueInstallment(2, dates.New(2024, time.March, 1)),
	}

	first, err := svc.Compute(loan, installments, asOf)
	assert.NoError(t, err)
	second, err := svc.Compute(loan, installments, asOf)
	assert.NoError(t, err)
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, len(first.PerInstallment), len(second.PerInstallment))
}

func TestComputeSkipsMissingDueDate(t *testing.T) {
	svc := NewLateFeeService()
	loan := lateFeeLoan()

	broken := overdueInstallment(1, time.Time{})
	healthy := overdueInstallment(2, dates.New(2024, time.February, 1))

	fees, err := svc.Compute(loan, []models.Installment{broken, healthy}, dates.New(2024, time.February, 11))
	assert.NoError(t, err)
	assert.Len(t, fees.PerInstallment, 1)
	assert.Equal(t, 2, fees.PerInstallment[0].InstallmentNumber)
}

func TestValidatePolicy(t *testing.T) {
	svc := NewLateFeeService()

	loan := lateFeeLoan()
	loan.LateFeeRate = decimal.NewFromInt(-1)
	assert.ErrorIs(t, svc.ValidatePolicy(loan), ErrInvalidPolicy)

	loan = lateFeeLoan()
	loan.GracePeriodDays = -1
	assert.ErrorIs(t, svc.ValidatePolicy(loan), ErrInvalidPolicy)

	loan = lateFeeLoan()
	loan.LateFeeCalculationType = "hourly"
	assert.ErrorIs(t, svc.ValidatePolicy(loan), ErrInvalidPolicy)

	// A disabled policy is never validated.
	loan.LateFeeEnabled = false
	assert.NoError(t, svc.ValidatePolicy(loan))
}
