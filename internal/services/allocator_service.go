package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/pkg/dates"
	"github.com/jgrullon/credimax-api/pkg/logger"
)

// coverageTolerance absorbs rounding drift across a long payment
// history: an installment counts as covered when the accumulated paid
// amount reaches 99% of the scheduled amount.
var coverageTolerance = decimal.NewFromFloat(0.99)

// AllocationResult is the outcome of splitting a tendered amount.
type AllocationResult struct {
	Payment      models.Payment
	Installments []models.Installment
}

// AllocatorService splits an incoming payment across late fee,
// interest and principal in that fixed precedence, spilling forward
// into later unpaid installments in installment-number order. Pure:
// it never touches storage. It carries the late fee calculator so
// replay can rebuild the accrual breakdown at each payment's date.
type AllocatorService struct {
	lateFee *LateFeeService
}

// NewAllocatorService creates a new allocator service
func NewAllocatorService(lateFee *LateFeeService) *AllocatorService {
	return &AllocatorService{lateFee: lateFee}
}

// Allocate splits amount against the loan's outstanding obligations.
// The currently accrued late fee is extinguished first (capped at the
// amount tendered), then interest, then principal, walking unpaid
// installments in order and never skipping an earlier one. Anything
// left after the last installment is recorded as principal: a capital
// prepayment beyond the schedule.
//
// A payment with method "capital" skips fee and interest entirely and
// pays down principal only.
func (s *AllocatorService) Allocate(loan *models.Loan, installments []models.Installment, fees *LateFeeBreakdown, amount decimal.Decimal, paymentDate time.Time, method string) (*AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: el pago debe ser positivo", ErrInvalidAmount)
	}
	if loan.IsPaid() {
		return nil, fmt.Errorf("%w: %s", ErrLoanAlreadyPaid, loan.Status)
	}

	insts := cloneInstallments(installments)
	remaining := amount
	capitalOnly := method == models.PaymentMethodCapital

	feePortion := decimal.Zero
	if !capitalOnly && fees != nil && fees.Total.IsPositive() {
		feePortion = decimal.Min(remaining, fees.Total)
		spreadLateFee(insts, fees, feePortion)
		remaining = remaining.Sub(feePortion)
	}

	interestPortion := decimal.Zero
	principalPortion := decimal.Zero
	var targetDue *time.Time

	for i := range insts {
		inst := &insts[i]
		if inst.Satisfied() {
			continue
		}
		if !remaining.IsPositive() {
			break
		}

		touched := false
		if !capitalOnly {
			if due := inst.InterestAmount.Sub(inst.InterestPaid); due.IsPositive() {
				pay := decimal.Min(remaining, due)
				inst.InterestPaid = inst.InterestPaid.Add(pay)
				interestPortion = interestPortion.Add(pay)
				remaining = remaining.Sub(pay)
				touched = true
			}
		}
		if due := inst.PrincipalAmount.Sub(inst.PrincipalPaid); due.IsPositive() && remaining.IsPositive() {
			pay := decimal.Min(remaining, due)
			inst.PrincipalPaid = inst.PrincipalPaid.Add(pay)
			principalPortion = principalPortion.Add(pay)
			remaining = remaining.Sub(pay)
			touched = true
		}

		if touched && targetDue == nil {
			d := dates.Truncate(inst.DueDate)
			targetDue = &d
		}
		resolveInstallmentState(inst, paymentDate)
	}

	// Overflow beyond every scheduled obligation pays down capital.
	if remaining.IsPositive() {
		principalPortion = principalPortion.Add(remaining)
		remaining = decimal.Zero
	}

	if targetDue == nil {
		if next := nextUnsatisfiedDue(insts); next != nil {
			targetDue = next
		} else if len(insts) > 0 {
			d := dates.Truncate(insts[len(insts)-1].DueDate)
			targetDue = &d
		}
	}

	// Rounding happens here, at the persistence boundary. Principal
	// absorbs the rounding remainder so amount always equals the sum
	// of its components.
	feeRounded := feePortion.Round(2)
	interestRounded := interestPortion.Round(2)
	payment := models.Payment{
		LoanID:          loan.ID,
		Amount:          amount.Round(2),
		LateFee:         feeRounded,
		InterestAmount:  interestRounded,
		PrincipalAmount: amount.Round(2).Sub(feeRounded).Sub(interestRounded),
		PaymentDate:     dates.Truncate(paymentDate),
		PaymentMethod:   method,
		Status:          models.PaymentStatusCompleted,
	}
	if targetDue != nil {
		payment.DueDate = *targetDue
	}

	return &AllocationResult{Payment: payment, Installments: insts}, nil
}

// Replay rebuilds installment accumulation state from scratch by
// applying every payment in chronological order through the same rule
// Allocate uses. The input installments must have their accumulators
// reset (see ResetForReplay); settled flags survive the reset.
//
// Payments whose components do not sum to their total are skipped with
// a warning rather than aborting the whole computation for the loan.
func (s *AllocatorService) Replay(loan *models.Loan, installments []models.Installment, payments []models.Payment) []models.Installment {
	insts := cloneInstallments(installments)

	for p := range payments {
		payment := &payments[p]
		if !payment.Consistent() {
			logger.Warn("payment components do not sum to total, skipped from replay",
				"payment_id", payment.ID, "loan_id", payment.LoanID,
				"amount", payment.Amount.String(), "components", payment.ComponentsSum().String())
			continue
		}

		s.replayLateFee(loan, insts, payment)

		interestAvail := payment.InterestAmount
		principalAvail := payment.PrincipalAmount
		for i := range insts {
			inst := &insts[i]
			if inst.Satisfied() {
				continue
			}
			if !interestAvail.IsPositive() && !principalAvail.IsPositive() {
				break
			}
			if due := inst.InterestAmount.Sub(inst.InterestPaid); due.IsPositive() && interestAvail.IsPositive() {
				pay := decimal.Min(interestAvail, due)
				inst.InterestPaid = inst.InterestPaid.Add(pay)
				interestAvail = interestAvail.Sub(pay)
			}
			if due := inst.PrincipalAmount.Sub(inst.PrincipalPaid); due.IsPositive() && principalAvail.IsPositive() {
				pay := decimal.Min(principalAvail, due)
				inst.PrincipalPaid = inst.PrincipalPaid.Add(pay)
				principalAvail = principalAvail.Sub(pay)
			}
			resolveInstallmentState(inst, payment.PaymentDate)
		}
		// Principal left over here was a capital prepayment beyond the
		// schedule; it reduces the balance, not any installment.
	}

	return insts
}

// ResetForReplay zeroes the accumulators and paid state of a schedule
// before a replay pass. Settlement flags are preserved: settlement is
// a loan-level event, not a payment.
func ResetForReplay(installments []models.Installment) []models.Installment {
	insts := cloneInstallments(installments)
	for i := range insts {
		insts[i].PrincipalPaid = decimal.Zero
		insts[i].InterestPaid = decimal.Zero
		insts[i].LateFeePaid = decimal.Zero
		insts[i].IsPaid = false
		insts[i].PaidDate = nil
		if insts[i].IsSettled {
			insts[i].Status = models.InstallmentStatusSettled
		} else {
			insts[i].Status = models.InstallmentStatusPending
		}
	}
	return insts
}

// covered reports whether paid reaches the scheduled amount within the
// 1% tolerance.
func covered(paid, scheduled decimal.Decimal) bool {
	if !scheduled.IsPositive() {
		return true
	}
	return paid.GreaterThanOrEqual(scheduled.Mul(coverageTolerance))
}

// resolveInstallmentState derives pending/partial/paid from the
// accumulators. Settled installments are left alone.
func resolveInstallmentState(inst *models.Installment, paidDate time.Time) {
	if inst.IsSettled {
		return
	}
	if covered(inst.InterestPaid, inst.InterestAmount) && covered(inst.PrincipalPaid, inst.PrincipalAmount) {
		if !inst.IsPaid {
			d := dates.Truncate(paidDate)
			inst.PaidDate = &d
		}
		inst.IsPaid = true
		inst.Status = models.InstallmentStatusPaid
		return
	}
	inst.IsPaid = false
	inst.PaidDate = nil
	if inst.InterestPaid.Add(inst.PrincipalPaid).Add(inst.LateFeePaid).IsPositive() {
		inst.Status = models.InstallmentStatusPartial
	} else {
		inst.Status = models.InstallmentStatusPending
	}
}

// spreadLateFee credits the collected fee against the installments in
// the breakdown, in installment-number order, capped at each one's
// accrued amount. Returns whatever could not be attributed.
func spreadLateFee(installments []models.Installment, fees *LateFeeBreakdown, collected decimal.Decimal) decimal.Decimal {
	byNumber := make(map[int]*models.Installment, len(installments))
	for i := range installments {
		byNumber[installments[i].InstallmentNumber] = &installments[i]
	}
	for _, fee := range fees.PerInstallment {
		if !collected.IsPositive() {
			return decimal.Zero
		}
		inst, ok := byNumber[fee.InstallmentNumber]
		if !ok {
			continue
		}
		take := decimal.Min(collected, fee.Accrued)
		inst.LateFeePaid = inst.LateFeePaid.Add(take)
		collected = collected.Sub(take)
	}
	return collected
}

// replayLateFee attributes a replayed payment's collected fee against
// the accrual breakdown rebuilt at the payment's date, keeping the
// per-installment credits close to what the forward pass produced.
// Anything the breakdown cannot absorb (rounding, a policy edited
// after the fact) lands on the earliest unsatisfied installment so no
// collected fee is ever dropped.
func (s *AllocatorService) replayLateFee(loan *models.Loan, installments []models.Installment, payment *models.Payment) {
	fee := payment.LateFee
	if !fee.IsPositive() {
		return
	}
	fees, err := s.lateFee.Compute(loan, installments, payment.PaymentDate)
	if err != nil {
		logger.Warn("late fee breakdown unavailable during replay",
			"loan_id", payment.LoanID, "payment_id", payment.ID, "error", err)
		fees = &LateFeeBreakdown{Total: decimal.Zero}
	}
	leftover := spreadLateFee(installments, fees, fee)
	if !leftover.IsPositive() {
		return
	}
	for i := range installments {
		if !installments[i].Satisfied() {
			installments[i].LateFeePaid = installments[i].LateFeePaid.Add(leftover)
			return
		}
	}
	if len(installments) > 0 {
		last := len(installments) - 1
		installments[last].LateFeePaid = installments[last].LateFeePaid.Add(leftover)
	}
}

// nextUnsatisfiedDue returns the due date of the earliest installment
// still owed, or nil when everything is satisfied.
func nextUnsatisfiedDue(installments []models.Installment) *time.Time {
	for i := range installments {
		if !installments[i].Satisfied() {
			d := dates.Truncate(installments[i].DueDate)
			return &d
		}
	}
	return nil
}

func cloneInstallments(installments []models.Installment) []models.Installment {
	insts := make([]models.Installment, len(installments))
	copy(insts, installments)
	return insts
}
