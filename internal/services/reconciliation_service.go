package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/internal/statemachine"
	"github.com/jgrullon/credimax-api/pkg/dates"
	"github.com/jgrullon/credimax-api/pkg/logger"
)

const (
	aggregateReadAttempts = 3
	aggregateReadBackoff  = 150 * time.Millisecond
)

// ReconciliationService keeps a loan's aggregate fields and its
// installments mutually consistent after any payment insertion or
// deletion, and after manual balance-affecting events. It is the sole
// writer of remaining_balance, next_payment_date, current_late_fee and
// installment paid state.
//
// Per-loan operations run under a keyed mutex: two reconciliations
// against the same loan never interleave their replay passes.
// Cross-loan operations need no coordination.
type ReconciliationService struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	paymentRepo     repository.PaymentRepository
	ledgerRepo      repository.LedgerRepository
	scheduleSvc     *ScheduleService
	lateFeeSvc      *LateFeeService
	allocatorSvc    *AllocatorService
	auditSvc        *AuditService

	settleDelay time.Duration

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	scheduleSvc *ScheduleService,
	lateFeeSvc *LateFeeService,
	allocatorSvc *AllocatorService,
	auditSvc *AuditService,
	settleDelay time.Duration,
) *ReconciliationService {
	return &ReconciliationService{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
		ledgerRepo:      ledgerRepo,
		scheduleSvc:     scheduleSvc,
		lateFeeSvc:      lateFeeSvc,
		allocatorSvc:    allocatorSvc,
		auditSvc:        auditSvc,
		settleDelay:     settleDelay,
		locks:           make(map[uint]*sync.Mutex),
	}
}

// loanLock returns the mutex guarding one loan's reconciliation.
func (s *ReconciliationService) loanLock(loanID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[loanID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[loanID] = l
	return l
}

// RegisterPaymentRequest carries the caller-supplied fields of a new payment.
type RegisterPaymentRequest struct {
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
	Notes         *string
	Actor         string
}

// RegisterPayment allocates a tendered amount against the loan,
// persists the resulting payment and rewrites the loan/installment
// aggregate state.
func (s *ReconciliationService) RegisterPayment(ctx context.Context, loanID uint, req RegisterPaymentRequest) (*models.Payment, []models.Installment, error) {
	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	if err := s.lateFeeSvc.ValidatePolicy(loan); err != nil {
		return nil, nil, err
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = dates.Today()
	}
	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCash
	}

	installments, err := s.currentInstallments(ctx, loan, paymentDate)
	if err != nil {
		return nil, nil, err
	}
	fees, err := s.lateFeeSvc.Compute(loan, installments, paymentDate)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.allocatorSvc.Allocate(loan, installments, fees, req.Amount, paymentDate, method)
	if err != nil {
		return nil, nil, err
	}

	payment := result.Payment
	payment.ReferenceNumber = uuid.NewString()
	payment.Notes = req.Notes
	if err := s.paymentRepo.Create(ctx, &payment); err != nil {
		return nil, nil, fmt.Errorf("failed to store payment: %w", err)
	}

	if err := s.persistInstallmentChanges(ctx, installments, result.Installments, paymentDate); err != nil {
		return nil, nil, err
	}

	balanceBefore := loan.RemainingBalance
	payments, err := s.paymentRepo.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payments: %w", err)
	}
	if err := s.refreshAggregates(ctx, loan, result.Installments, payments, paymentDate); err != nil {
		return nil, nil, err
	}

	entryType := models.EntryTypePayment
	description := fmt.Sprintf("Pago recibido (%s)", method)
	if method == models.PaymentMethodCapital {
		entryType = models.EntryTypeCapital
		description = "Abono a capital"
	}
	entry := &models.LoanLedgerEntry{
		LoanID:        loanID,
		PaymentID:     &payment.ID,
		Amount:        payment.Amount.Neg(),
		BalanceBefore: balanceBefore,
		BalanceAfter:  loan.RemainingBalance,
		Description:   description,
		EntryType:     entryType,
		EntryDate:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	s.auditSvc.Log(ctx, req.Actor, "CREATE", "Payment", payment.ID,
		fmt.Sprintf("Pago registrado: %s (préstamo %d)", payment.Amount.StringFixed(2), loanID), "", "")

	logger.Info("payment registered",
		"loan_id", loanID, "payment_id", payment.ID,
		"amount", payment.Amount.String(),
		"late_fee", payment.LateFee.String(),
		"interest", payment.InterestAmount.String(),
		"principal", payment.PrincipalAmount.String())

	return &payment, result.Installments, nil
}

// RemovePayment deletes a payment and rebuilds loan/installment state
// by replaying every surviving payment in chronological order. State
// is recomputed from scratch, never by subtracting the deleted
// payment's components from the old aggregates.
func (s *ReconciliationService) RemovePayment(ctx context.Context, paymentID uint, actor string) (*models.Loan, []models.Installment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: pago %d", ErrNotFound, paymentID)
	}
	loanID := payment.LoanID

	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	if err := s.lateFeeSvc.ValidatePolicy(loan); err != nil {
		return nil, nil, err
	}

	if err := s.paymentRepo.Delete(ctx, paymentID); err != nil {
		return nil, nil, fmt.Errorf("failed to delete payment: %w", err)
	}

	// A deletion can reopen a loan that had reached zero balance.
	if loan.IsPaid() {
		loan.Status = models.LoanStatusActive
	}

	today := dates.Today()
	installments, err := s.currentInstallments(ctx, loan, today)
	if err != nil {
		return nil, nil, err
	}
	survivors, err := s.paymentRepo.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load surviving payments: %w", err)
	}

	replayed := s.allocatorSvc.Replay(loan, ResetForReplay(installments), survivors)
	if err := s.reapplyWaivers(ctx, loan, replayed, today); err != nil {
		return nil, nil, err
	}
	if err := s.persistInstallmentChanges(ctx, installments, replayed, today); err != nil {
		return nil, nil, err
	}

	balanceBefore := loan.RemainingBalance
	if err := s.refreshAggregatesAuthoritative(ctx, loan, replayed, survivors, today); err != nil {
		return nil, nil, err
	}

	entry := &models.LoanLedgerEntry{
		LoanID:        loanID,
		Amount:        payment.Amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  loan.RemainingBalance,
		Description:   fmt.Sprintf("Reversión de pago #%d", paymentID),
		EntryType:     models.EntryTypeReversal,
		EntryDate:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to create reversal entry: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "DELETE", "Payment", paymentID,
		fmt.Sprintf("Pago revertido: %s (préstamo %d)", payment.Amount.StringFixed(2), loanID), "", "")

	logger.Info("payment removed and loan replayed",
		"loan_id", loanID, "payment_id", paymentID,
		"surviving_payments", len(survivors),
		"balance", loan.RemainingBalance.String())

	return loan, replayed, nil
}

// AddCharge attaches an ad-hoc charge to the loan, raising the owed
// baseline. The before-balance snapshot includes all prior charges so
// the audit trail never appears to regress.
func (s *ReconciliationService) AddCharge(ctx context.Context, loanID uint, amount decimal.Decimal, description, actor string) (*models.LoanLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: el cargo debe ser positivo", ErrInvalidAmount)
	}

	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	if loan.IsPaid() {
		// An added charge reopens a settled balance.
		loan.Status = models.LoanStatusActive
	}

	balanceBefore := loan.RemainingBalance
	if description == "" {
		description = "Cargo adicional"
	}
	entry := &models.LoanLedgerEntry{
		LoanID:        loanID,
		Amount:        amount.Round(2),
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(amount.Round(2)),
		Description:   description,
		EntryType:     models.EntryTypeCharge,
		EntryDate:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create charge entry: %w", err)
	}

	loan.RemainingBalance = entry.BalanceAfter
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "CHARGE", "Loan", loanID,
		fmt.Sprintf("Cargo agregado: %s (%s)", amount.StringFixed(2), description), "", "")

	logger.Info("charge added", "loan_id", loanID, "amount", amount.String())
	return entry, nil
}

// WaiveLateFee forgives up to amount of the currently accrued late
// fee, crediting the overdue installments in order.
func (s *ReconciliationService) WaiveLateFee(ctx context.Context, loanID uint, amount decimal.Decimal, reason, actor string) (*models.LoanLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: el monto a condonar debe ser positivo", ErrInvalidAmount)
	}

	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	if err := s.lateFeeSvc.ValidatePolicy(loan); err != nil {
		return nil, err
	}

	today := dates.Today()
	installments, err := s.currentInstallments(ctx, loan, today)
	if err != nil {
		return nil, err
	}
	fees, err := s.lateFeeSvc.Compute(loan, installments, today)
	if err != nil {
		return nil, err
	}

	waived := decimal.Min(amount, fees.Total)
	updated := cloneInstallments(installments)
	spreadLateFee(updated, fees, waived)
	if err := s.persistInstallmentChanges(ctx, installments, updated, today); err != nil {
		return nil, err
	}

	refreshed, err := s.lateFeeSvc.Compute(loan, updated, today)
	if err != nil {
		return nil, err
	}
	loan.CurrentLateFee = refreshed.Total.Round(2)
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	if reason == "" {
		reason = "Condonación de mora"
	}
	entry := &models.LoanLedgerEntry{
		LoanID:        loanID,
		Amount:        waived.Round(2).Neg(),
		BalanceBefore: loan.RemainingBalance,
		BalanceAfter:  loan.RemainingBalance,
		Description:   reason,
		EntryType:     models.EntryTypeWaiver,
		EntryDate:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create waiver entry: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "WAIVE", "Loan", loanID,
		fmt.Sprintf("Mora condonada: %s", waived.StringFixed(2)), "", "")

	logger.Info("late fee waived", "loan_id", loanID, "waived", waived.String())
	return entry, nil
}

// CapitalPaydown applies a principal-only payment: no interest, no
// late fee, just a reduction of the owed capital.
func (s *ReconciliationService) CapitalPaydown(ctx context.Context, loanID uint, amount decimal.Decimal, notes *string, actor string) (*models.Payment, []models.Installment, error) {
	return s.RegisterPayment(ctx, loanID, RegisterPaymentRequest{
		Amount:        amount,
		PaymentMethod: models.PaymentMethodCapital,
		Notes:         notes,
		Actor:         actor,
	})
}

// Settle marks every outstanding installment satisfied by a loan-level
// settlement event and closes the loan. Settlement extinguishes late
// fee accrual; the underlying is_paid flags stay false.
func (s *ReconciliationService) Settle(ctx context.Context, loanID uint, actor string) (*models.Loan, error) {
	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("%w: préstamo %d", ErrNotFound, loanID)
	}
	if loan.IsPaid() {
		return nil, fmt.Errorf("%w: el préstamo ya está saldado", ErrInvalidState)
	}

	today := dates.Today()
	installments, err := s.currentInstallments(ctx, loan, today)
	if err != nil {
		return nil, err
	}

	updated := cloneInstallments(installments)
	for i := range updated {
		if updated[i].Satisfied() {
			continue
		}
		fsm := statemachine.NewInstallmentFSM(&updated[i])
		if err := fsm.Settle(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.persistInstallmentChanges(ctx, installments, updated, today); err != nil {
		return nil, err
	}

	balanceBefore := loan.RemainingBalance
	loan.Status = models.LoanStatusPaid
	loan.RemainingBalance = decimal.Zero
	loan.CurrentLateFee = decimal.Zero
	loan.NextPaymentDate = nil
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	entry := &models.LoanLedgerEntry{
		LoanID:        loanID,
		Amount:        balanceBefore.Neg(),
		BalanceBefore: balanceBefore,
		BalanceAfter:  decimal.Zero,
		Description:   "Saldo del préstamo",
		EntryType:     models.EntryTypeSettlement,
		EntryDate:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create settlement entry: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "SETTLE", "Loan", loanID,
		fmt.Sprintf("Préstamo saldado con balance %s", balanceBefore.StringFixed(2)), "", "")

	logger.Info("loan settled", "loan_id", loanID)
	return loan, nil
}

// RefreshLateFees recomputes the cached current_late_fee for every
// active loan. Runs on a schedule so the aggregate the UI reads never
// goes stale overnight.
func (s *ReconciliationService) RefreshLateFees(ctx context.Context) error {
	loans, err := s.loanRepo.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active loans: %w", err)
	}

	today := dates.Today()
	refreshed := 0
	for i := range loans {
		changed, err := s.refreshLoanLateFee(ctx, loans[i].ID, today)
		if err != nil {
			logger.Warn("skipping late fee refresh", "loan_id", loans[i].ID, "error", err)
			continue
		}
		if changed {
			refreshed++
		}
	}

	logger.Info("late fee refresh completed", "loans", len(loans), "updated", refreshed)
	return nil
}

// refreshLoanLateFee recomputes one loan's cached fee under its lock.
// The loan is re-read inside the critical section: a reconciliation
// that ran between the active-loan listing and this point already
// rewrote balance and next due date, and persisting a stale snapshot
// here would undo it.
func (s *ReconciliationService) refreshLoanLateFee(ctx context.Context, loanID uint, asOf time.Time) (bool, error) {
	lock := s.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return false, err
	}
	installments, err := s.currentInstallments(ctx, loan, asOf)
	if err != nil {
		return false, err
	}
	fees, err := s.lateFeeSvc.Compute(loan, installments, asOf)
	if err != nil {
		return false, err
	}
	total := fees.Total.Round(2)
	if total.Equal(loan.CurrentLateFee) {
		return false, nil
	}
	loan.CurrentLateFee = total
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return false, err
	}
	return true, nil
}

// reapplyWaivers restores forgiven late fee after a replay pass.
// Waivers live only in the ledger and in LateFeePaid credits, and
// ResetForReplay wipes the latter; without this step a payment
// deletion would resurrect every previously waived fee.
func (s *ReconciliationService) reapplyWaivers(ctx context.Context, loan *models.Loan, installments []models.Installment, asOf time.Time) error {
	sum, err := s.ledgerRepo.SumByType(ctx, loan.ID, models.EntryTypeWaiver)
	if err != nil {
		return fmt.Errorf("failed to sum waivers: %w", err)
	}
	// Waiver entries carry negative amounts.
	waived := sum.Neg()
	if !waived.IsPositive() {
		return nil
	}
	fees, err := s.lateFeeSvc.Compute(loan, installments, asOf)
	if err != nil {
		return err
	}
	spreadLateFee(installments, fees, waived)
	return nil
}

// currentInstallments returns the loan's schedule as it stands: the
// persisted rows for a fixed loan, or the derived schedule overlaid
// with any persisted rows for an indefinite loan.
func (s *ReconciliationService) currentInstallments(ctx context.Context, loan *models.Loan, asOf time.Time) ([]models.Installment, error) {
	persisted, err := s.installmentRepo.FindByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	if !loan.IsIndefinite() {
		return persisted, nil
	}
	derived, err := s.scheduleSvc.GenerateSchedule(loan, asOf)
	if err != nil {
		return nil, err
	}
	return s.scheduleSvc.Overlay(derived, persisted), nil
}

// persistInstallmentChanges writes the rows whose state changed,
// driving each transition through the installment state machine. For
// indefinite loans a derived row is persisted the first time a payment
// touches it.
func (s *ReconciliationService) persistInstallmentChanges(ctx context.Context, before, after []models.Installment, eventDate time.Time) error {
	prior := make(map[int]models.Installment, len(before))
	for _, inst := range before {
		prior[inst.InstallmentNumber] = inst
	}

	var changed []models.Installment
	for i := range after {
		inst := after[i]
		old, known := prior[inst.InstallmentNumber]
		if known && installmentUnchanged(&old, &inst) {
			continue
		}
		if inst.ID == 0 && installmentUntouched(&inst) {
			// Derived row of an indefinite loan nothing has touched:
			// keep deriving it instead of persisting.
			continue
		}
		if known {
			if err := transitionInstallment(ctx, &old, &inst, eventDate); err != nil {
				return err
			}
		}
		changed = append(changed, inst)
		after[i] = inst
	}
	if len(changed) == 0 {
		return nil
	}
	if err := s.installmentRepo.UpdateBatch(ctx, changed); err != nil {
		return fmt.Errorf("failed to persist installments: %w", err)
	}
	return nil
}

// transitionInstallment validates the status change through the FSM so
// an illegal jump (e.g. settled back to paid) fails loudly instead of
// silently corrupting state.
func transitionInstallment(ctx context.Context, old, target *models.Installment, eventDate time.Time) error {
	if old.DisplayStatus() == target.DisplayStatus() {
		return nil
	}
	walk := *old
	fsm := statemachine.NewInstallmentFSM(&walk)

	switch target.DisplayStatus() {
	case models.InstallmentStatusPaid:
		return fsm.Pay(ctx, eventDate)
	case models.InstallmentStatusSettled:
		return fsm.Settle(ctx)
	case models.InstallmentStatusPartial:
		if old.DisplayStatus() == models.InstallmentStatusPaid {
			return fsm.Demote(ctx)
		}
		return fsm.Advance(ctx)
	case models.InstallmentStatusPending:
		return fsm.Revert(ctx)
	default:
		return fmt.Errorf("%w: estado %q", ErrInvalidState, target.DisplayStatus())
	}
}

// refreshAggregates recomputes balance, status, next due date and late
// fee from the given state and persists the loan. The balance is
// always principal plus charges minus principal collected by the
// surviving payments, never a naive decrement.
func (s *ReconciliationService) refreshAggregates(ctx context.Context, loan *models.Loan, installments []models.Installment, payments []models.Payment, asOf time.Time) error {
	balance, err := s.clientBalance(ctx, loan, payments)
	if err != nil {
		return err
	}
	s.applyAggregates(loan, balance, nextUnsatisfiedDue(installments))
	return s.finishAggregates(ctx, loan, installments, asOf)
}

// refreshAggregatesAuthoritative is the deletion path: it computes the
// client-side estimate, then after a short settling delay re-reads the
// authoritative aggregates recomputed on the database side. The
// authoritative value always wins; the client estimate is only a
// fallback when the read keeps failing, and that discrepancy risk is
// logged.
func (s *ReconciliationService) refreshAggregatesAuthoritative(ctx context.Context, loan *models.Loan, installments []models.Installment, payments []models.Payment, asOf time.Time) error {
	balance, err := s.clientBalance(ctx, loan, payments)
	if err != nil {
		return err
	}
	next := nextUnsatisfiedDue(installments)

	if s.settleDelay > 0 {
		time.Sleep(s.settleDelay)
	}
	agg, readErr := s.readAggregatesWithRetry(ctx, loan.ID)
	if readErr != nil {
		logger.Warn("authoritative aggregate read failed, using client-side values",
			"loan_id", loan.ID, "error", readErr,
			"client_balance", balance.String())
	} else {
		balance = agg.RemainingBalance
		if agg.NextPaymentDate != nil {
			d := dates.Truncate(*agg.NextPaymentDate)
			next = &d
		} else {
			next = nil
		}
	}

	s.applyAggregates(loan, balance, next)
	return s.finishAggregates(ctx, loan, installments, asOf)
}

func (s *ReconciliationService) readAggregatesWithRetry(ctx context.Context, loanID uint) (*repository.LoanAggregates, error) {
	var lastErr error
	for attempt := 1; attempt <= aggregateReadAttempts; attempt++ {
		agg, err := s.loanRepo.ReadAggregates(ctx, loanID)
		if err == nil {
			return agg, nil
		}
		lastErr = err
		if attempt < aggregateReadAttempts {
			time.Sleep(aggregateReadBackoff * time.Duration(attempt))
		}
	}
	return nil, lastErr
}

// clientBalance computes remaining balance from scratch:
// original principal + outstanding charges - principal collected.
func (s *ReconciliationService) clientBalance(ctx context.Context, loan *models.Loan, payments []models.Payment) (decimal.Decimal, error) {
	charges, err := s.ledgerRepo.SumByType(ctx, loan.ID, models.EntryTypeCharge)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum charges: %w", err)
	}
	balance := loan.Amount.Add(charges)
	for i := range payments {
		if !payments[i].Consistent() {
			logger.Warn("payment components do not sum to total, skipped from balance",
				"payment_id", payments[i].ID, "loan_id", loan.ID)
			continue
		}
		balance = balance.Sub(payments[i].PrincipalAmount)
	}
	return balance, nil
}

// applyAggregates writes balance and next due onto the loan, flipping
// the status to paid at zero. The balance never goes negative.
func (s *ReconciliationService) applyAggregates(loan *models.Loan, balance decimal.Decimal, next *time.Time) {
	balance = balance.Round(2)
	if balance.LessThanOrEqual(decimal.Zero) {
		loan.RemainingBalance = decimal.Zero
		loan.Status = models.LoanStatusPaid
		loan.NextPaymentDate = nil
		return
	}
	loan.RemainingBalance = balance
	loan.Status = models.LoanStatusActive
	loan.NextPaymentDate = next
}

// finishAggregates recomputes the late fee last, after installment
// states and the next due date are final, then persists the loan.
func (s *ReconciliationService) finishAggregates(ctx context.Context, loan *models.Loan, installments []models.Installment, asOf time.Time) error {
	fees, err := s.lateFeeSvc.Compute(loan, installments, asOf)
	if err != nil {
		return err
	}
	loan.CurrentLateFee = fees.Total.Round(2)
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return nil
}

// installmentUnchanged compares the fields reconciliation rewrites.
func installmentUnchanged(a, b *models.Installment) bool {
	return a.PrincipalPaid.Equal(b.PrincipalPaid) &&
		a.InterestPaid.Equal(b.InterestPaid) &&
		a.LateFeePaid.Equal(b.LateFeePaid) &&
		a.IsPaid == b.IsPaid &&
		a.IsSettled == b.IsSettled &&
		a.Status == b.Status &&
		equalDatePtr(a.PaidDate, b.PaidDate)
}

// installmentUntouched reports whether nothing has ever been paid or
// settled against the installment.
func installmentUntouched(inst *models.Installment) bool {
	return inst.PrincipalPaid.IsZero() &&
		inst.InterestPaid.IsZero() &&
		inst.LateFeePaid.IsZero() &&
		!inst.IsPaid && !inst.IsSettled
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return dates.SameDate(*a, *b)
}
