package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

// In-memory fakes standing in for the gorm repositories.

type fakeLoanRepo struct {
	repository.LoanRepository
	loan       *models.Loan
	active     []models.Loan // FindActive override, stands in for a stale listing
	aggregates *repository.LoanAggregates
	aggErr     error
	aggCalls   int
}

func (m *fakeLoanRepo) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.loan == nil || m.loan.ID != id {
		return nil, errors.New("record not found")
	}
	return m.loan, nil
}

func (m *fakeLoanRepo) FindActive(ctx context.Context) ([]models.Loan, error) {
	if m.active != nil {
		return m.active, nil
	}
	if m.loan != nil && m.loan.Status == models.LoanStatusActive {
		return []models.Loan{*m.loan}, nil
	}
	return nil, nil
}

func (m *fakeLoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	m.loan = loan
	return nil
}

func (m *fakeLoanRepo) Delete(ctx context.Context, id uint) error {
	if m.loan != nil && m.loan.ID == id {
		m.loan = nil
		return nil
	}
	return errors.New("record not found")
}

func (m *fakeLoanRepo) ReadAggregates(ctx context.Context, loanID uint) (*repository.LoanAggregates, error) {
	m.aggCalls++
	if m.aggErr != nil {
		return nil, m.aggErr
	}
	return m.aggregates, nil
}

type fakeInstallmentRepo struct {
	repository.InstallmentRepository
	rows   []models.Installment
	nextID uint
}

func (m *fakeInstallmentRepo) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	out := make([]models.Installment, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *fakeInstallmentRepo) UpdateBatch(ctx context.Context, installments []models.Installment) error {
	for _, inst := range installments {
		if inst.ID == 0 {
			m.nextID++
			inst.ID = m.nextID
			m.rows = append(m.rows, inst)
			continue
		}
		for i := range m.rows {
			if m.rows[i].ID == inst.ID {
				m.rows[i] = inst
				break
			}
		}
	}
	return nil
}

func (m *fakeInstallmentRepo) DeleteByLoan(ctx context.Context, loanID uint) error {
	var kept []models.Installment
	for _, row := range m.rows {
		if row.LoanID != loanID {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	return nil
}

type fakePaymentRepo struct {
	repository.PaymentRepository
	payments []models.Payment
	nextID   uint
}

func (m *fakePaymentRepo) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	for i := range m.payments {
		if m.payments[i].ID == id {
			p := m.payments[i]
			return &p, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *fakePaymentRepo) FindByLoan(ctx context.Context, loanID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.LoanID == loanID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	m.nextID++
	payment.ID = m.nextID
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *fakePaymentRepo) Delete(ctx context.Context, id uint) error {
	for i := range m.payments {
		if m.payments[i].ID == id {
			m.payments = append(m.payments[:i], m.payments[i+1:]...)
			return nil
		}
	}
	return errors.New("record not found")
}

func (m *fakePaymentRepo) DeleteByLoan(ctx context.Context, loanID uint) error {
	var kept []models.Payment
	for _, p := range m.payments {
		if p.LoanID != loanID {
			kept = append(kept, p)
		}
	}
	m.payments = kept
	return nil
}

type fakeLedgerRepo struct {
	repository.LedgerRepository
	entries []models.LoanLedgerEntry
}

func (m *fakeLedgerRepo) Create(ctx context.Context, entry *models.LoanLedgerEntry) error {
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *fakeLedgerRepo) SumByType(ctx context.Context, loanID uint, entryType string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.entries {
		if e.LoanID == loanID && e.EntryType == entryType {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *fakeLedgerRepo) DeleteByLoanID(ctx context.Context, loanID uint) error {
	var kept []models.LoanLedgerEntry
	for _, e := range m.entries {
		if e.LoanID != loanID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

type reconFixture struct {
	svc          *ReconciliationService
	loans        *fakeLoanRepo
	installments *fakeInstallmentRepo
	payments     *fakePaymentRepo
	ledger       *fakeLedgerRepo
}

func newReconFixture(loan *models.Loan, rows []models.Installment) *reconFixture {
	loans := &fakeLoanRepo{loan: loan, aggErr: errors.New("aggregates unavailable")}
	installments := &fakeInstallmentRepo{rows: rows, nextID: 100}
	for i := range installments.rows {
		if installments.rows[i].ID == 0 {
			installments.nextID++
			installments.rows[i].ID = installments.nextID
		}
	}
	payments := &fakePaymentRepo{}
	ledger := &fakeLedgerRepo{}

	svc := NewReconciliationService(
		loans, installments, payments, ledger,
		NewScheduleService(), NewLateFeeService(), NewAllocatorService(NewLateFeeService()),
		nil, 0,
	)
	return &reconFixture{svc: svc, loans: loans, installments: installments, payments: payments, ledger: ledger}
}

func reconLoan() *models.Loan {
	return &models.Loan{
		ID:               10,
		ClientName:       "Ana Díaz",
		Amount:           decimal.NewFromInt(10000),
		InterestRate:     decimal.NewFromInt(5),
		TermMonths:       4,
		PaymentFrequency: dates.FrequencyMonthly,
		AmortizationType: models.AmortizationFixed,
		StartDate:        dates.New(2024, time.January, 1),
		RemainingBalance: decimal.NewFromInt(10000),
		Status:           models.LoanStatusActive,
	}
}

func reconSchedule(loan *models.Loan) []models.Installment {
	insts := schedule(loan, loan.TermMonths)
	for i := range insts {
		insts[i].LoanID = loan.ID
	}
	return insts
}

func TestRegisterPaymentUpdatesAggregates(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	payment, installments, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, payment.ReferenceNumber)
	assert.True(t, payment.InterestAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, payment.PrincipalAmount.Equal(decimal.NewFromInt(2500)))

	assert.True(t, installments[0].IsPaid)
	assert.True(t, f.installments.rows[0].IsPaid, "paid state must be persisted")

	// Balance is recomputed from the payment history, not decremented.
	assert.True(t, f.loans.loan.RemainingBalance.Equal(decimal.NewFromInt(7500)),
		"got %s", f.loans.loan.RemainingBalance)
	assert.Equal(t, models.LoanStatusActive, f.loans.loan.Status)
	assert.NotNil(t, f.loans.loan.NextPaymentDate)
	assert.Equal(t, dates.New(2024, time.March, 1), *f.loans.loan.NextPaymentDate)

	// One ledger entry records the event with balance before and after.
	assert.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, models.EntryTypePayment, entry.EntryType)
	assert.True(t, entry.BalanceBefore.Equal(decimal.NewFromInt(10000)))
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(7500)))
}

func TestRegisterPaymentClosesLoanAtZero(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	// Four full installments pay the loan off.
	_, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(12000),
		PaymentDate: dates.New(2024, time.May, 1),
	})
	assert.NoError(t, err)

	assert.True(t, f.loans.loan.RemainingBalance.IsZero())
	assert.Equal(t, models.LoanStatusPaid, f.loans.loan.Status)
	assert.Nil(t, f.loans.loan.NextPaymentDate)
	assert.True(t, f.loans.loan.CurrentLateFee.IsZero())
}

func TestRegisterPaymentRejectsPaidLoan(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	loan.Status = models.LoanStatusPaid
	f := newReconFixture(loan, reconSchedule(loan))

	_, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(100),
		PaymentDate: dates.New(2024, time.May, 1),
	})
	assert.ErrorIs(t, err, ErrLoanAlreadyPaid)
	assert.Empty(t, f.payments.payments)
}

func TestRegisterPaymentUnknownLoan(t *testing.T) {
	f := newReconFixture(reconLoan(), nil)

	_, _, err := f.svc.RegisterPayment(context.Background(), 999, RegisterPaymentRequest{
		Amount: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemovePaymentReplaysSurvivors(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	first, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)
	_, _, err = f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.March, 1),
	})
	assert.NoError(t, err)
	assert.True(t, f.loans.loan.RemainingBalance.Equal(decimal.NewFromInt(5000)))

	// Deleting the first payment leaves the second, which replays onto
	// the first installment.
	updated, installments, err := f.svc.RemovePayment(ctx, first.ID, "admin@credimax.do")
	assert.NoError(t, err)

	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(7500)),
		"got %s", updated.RemainingBalance)
	assert.True(t, installments[0].IsPaid, "surviving payment now covers installment 1")
	assert.False(t, installments[1].IsPaid, "installment 2 reopens after the deletion")
	assert.Equal(t, models.InstallmentStatusPending, installments[1].Status)

	// The deletion leaves a reversal entry in the trail.
	last := f.ledger.entries[len(f.ledger.entries)-1]
	assert.Equal(t, models.EntryTypeReversal, last.EntryType)
	assert.True(t, last.Amount.Equal(decimal.NewFromInt(3000)))
}

func TestRemovePaymentRoundTripRestoresState(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	_, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)

	balanceAfterFirst := f.loans.loan.RemainingBalance
	rowsAfterFirst := make([]models.Installment, len(f.installments.rows))
	copy(rowsAfterFirst, f.installments.rows)

	second, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(700),
		PaymentDate: dates.New(2024, time.March, 1),
	})
	assert.NoError(t, err)

	_, _, err = f.svc.RemovePayment(ctx, second.ID, "admin@credimax.do")
	assert.NoError(t, err)

	assert.True(t, f.loans.loan.RemainingBalance.Equal(balanceAfterFirst),
		"balance after round trip %s, want %s", f.loans.loan.RemainingBalance, balanceAfterFirst)
	for i := range rowsAfterFirst {
		assert.True(t, rowsAfterFirst[i].PrincipalPaid.Equal(f.installments.rows[i].PrincipalPaid),
			"installment %d principal", i+1)
		assert.True(t, rowsAfterFirst[i].InterestPaid.Equal(f.installments.rows[i].InterestPaid),
			"installment %d interest", i+1)
		assert.Equal(t, rowsAfterFirst[i].IsPaid, f.installments.rows[i].IsPaid)
	}
}

func TestRemovePaymentPrefersAuthoritativeAggregates(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	payment, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)

	// The database-side recomputation reports a different balance than
	// the in-memory estimate; the authoritative value wins.
	next := dates.New(2024, time.February, 1)
	f.loans.aggErr = nil
	f.loans.aggregates = &repository.LoanAggregates{
		RemainingBalance: decimal.NewFromInt(9985),
		NextPaymentDate:  &next,
	}

	updated, _, err := f.svc.RemovePayment(ctx, payment.ID, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, 1, f.loans.aggCalls)
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(9985)),
		"got %s", updated.RemainingBalance)
	assert.Equal(t, next, *updated.NextPaymentDate)
}

func TestRemovePaymentFallsBackToClientAggregates(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	payment, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)

	f.loans.aggCalls = 0
	// aggErr stays set: every read fails, the client estimate is used.
	updated, _, err := f.svc.RemovePayment(ctx, payment.ID, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, 3, f.loans.aggCalls, "read is retried before falling back")
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(10000)),
		"got %s", updated.RemainingBalance)
}

func TestRemovePaymentReopensPaidLoan(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	payment, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(12000),
		PaymentDate: dates.New(2024, time.May, 1),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusPaid, f.loans.loan.Status)

	updated, _, err := f.svc.RemovePayment(ctx, payment.ID, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, updated.Status)
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(10000)))
}

func TestAddChargeRaisesBalanceBaseline(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	entry, err := f.svc.AddCharge(ctx, loan.ID, decimal.NewFromInt(350), "Gastos legales", "admin@credimax.do")
	assert.NoError(t, err)
	assert.True(t, entry.BalanceBefore.Equal(decimal.NewFromInt(10000)))
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(10350)))
	assert.True(t, f.loans.loan.RemainingBalance.Equal(decimal.NewFromInt(10350)))

	// A later payment-driven recomputation includes the charge in the
	// owed baseline.
	_, _, err = f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: dates.New(2024, time.February, 1),
	})
	assert.NoError(t, err)
	assert.True(t, f.loans.loan.RemainingBalance.Equal(decimal.NewFromInt(7850)),
		"got %s", f.loans.loan.RemainingBalance)
}

func TestAddChargeRejectsNonPositive(t *testing.T) {
	f := newReconFixture(reconLoan(), nil)

	_, err := f.svc.AddCharge(context.Background(), 10, decimal.Zero, "", "admin@credimax.do")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWaiveLateFeeCreditsInstallments(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	loan.LateFeeEnabled = true
	loan.LateFeeRate = decimal.NewFromInt(2)
	loan.LateFeeCalculationType = models.LateFeeCalcDaily
	f := newReconFixture(loan, reconSchedule(loan))

	// Installment 1 due 2024-02-01; waive part of what has accrued.
	entry, err := f.svc.WaiveLateFee(ctx, loan.ID, decimal.NewFromInt(100), "Acuerdo con el cliente", "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, models.EntryTypeWaiver, entry.EntryType)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(-100)))
	// The waiver does not move the balance, only the fee.
	assert.True(t, entry.BalanceBefore.Equal(entry.BalanceAfter))

	assert.True(t, f.installments.rows[0].LateFeePaid.Equal(decimal.NewFromInt(100)))
}

func TestSettleClosesLoanWithoutPayingInstallments(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	updated, err := f.svc.Settle(ctx, loan.ID, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusPaid, updated.Status)
	assert.True(t, updated.RemainingBalance.IsZero())
	assert.True(t, updated.CurrentLateFee.IsZero())
	assert.Nil(t, updated.NextPaymentDate)

	for _, row := range f.installments.rows {
		assert.True(t, row.IsSettled)
		assert.False(t, row.IsPaid, "settlement is not payment")
		assert.Equal(t, models.InstallmentStatusSettled, row.Status)
	}

	last := f.ledger.entries[len(f.ledger.entries)-1]
	assert.Equal(t, models.EntryTypeSettlement, last.EntryType)

	_, err = f.svc.Settle(ctx, loan.ID, "admin@credimax.do")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRefreshLateFeesPersistsChangedTotals(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	loan.LateFeeEnabled = true
	loan.LateFeeRate = decimal.NewFromInt(2)
	loan.LateFeeCalculationType = models.LateFeeCalcDaily
	f := newReconFixture(loan, reconSchedule(loan))

	err := f.svc.RefreshLateFees(ctx)
	assert.NoError(t, err)
	// All four installments are long overdue by now, so some fee must
	// have been cached on the loan.
	assert.True(t, f.loans.loan.CurrentLateFee.IsPositive())
}

func TestRemovePaymentPreservesWaivedLateFee(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	loan.LateFeeEnabled = true
	loan.LateFeeRate = decimal.NewFromInt(2)
	loan.LateFeeCalculationType = models.LateFeeCalcDaily
	f := newReconFixture(loan, reconSchedule(loan))

	_, err := f.svc.WaiveLateFee(ctx, loan.ID, decimal.NewFromInt(100), "Acuerdo con el cliente", "admin@credimax.do")
	assert.NoError(t, err)
	feeAfterWaive := f.loans.loan.CurrentLateFee
	assert.True(t, f.installments.rows[0].LateFeePaid.Equal(decimal.NewFromInt(100)))

	payment, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount: decimal.NewFromInt(500),
	})
	assert.NoError(t, err)

	// Deleting the payment rebuilds installment state from scratch;
	// the forgiveness lives in the ledger and must come back with it.
	_, _, err = f.svc.RemovePayment(ctx, payment.ID, "admin@credimax.do")
	assert.NoError(t, err)

	assert.True(t, f.installments.rows[0].LateFeePaid.Equal(decimal.NewFromInt(100)),
		"waived credit must survive the replay, got %s", f.installments.rows[0].LateFeePaid)
	assert.True(t, f.loans.loan.CurrentLateFee.Equal(feeAfterWaive),
		"cached fee must not resurrect the waived amount: before %s after %s",
		feeAfterWaive, f.loans.loan.CurrentLateFee)
}

func TestRefreshLateFeesDoesNotClobberConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	loan.LateFeeEnabled = true
	loan.LateFeeRate = decimal.NewFromInt(2)
	loan.LateFeeCalculationType = models.LateFeeCalcDaily
	f := newReconFixture(loan, reconSchedule(loan))

	// The active-loan listing is a snapshot; a payment lands after it
	// was taken and rewrites the balance. The refresh must re-read the
	// loan under its lock instead of persisting the stale snapshot.
	f.loans.active = []models.Loan{*loan}
	loan.RemainingBalance = decimal.NewFromInt(7500)

	err := f.svc.RefreshLateFees(ctx)
	assert.NoError(t, err)
	assert.True(t, f.loans.loan.RemainingBalance.Equal(decimal.NewFromInt(7500)),
		"refresh overwrote the balance with %s", f.loans.loan.RemainingBalance)
	assert.True(t, f.loans.loan.CurrentLateFee.IsPositive())
}

func TestCapitalPaydownRecordsCapitalEntry(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	payment, _, err := f.svc.CapitalPaydown(ctx, loan.ID, decimal.NewFromInt(1000), nil, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentMethodCapital, payment.PaymentMethod)

	last := f.ledger.entries[len(f.ledger.entries)-1]
	assert.Equal(t, models.EntryTypeCapital, last.EntryType)
	assert.True(t, last.Amount.Equal(decimal.NewFromInt(-1000)))
}

func TestDeleteLoanCascades(t *testing.T) {
	ctx := context.Background()
	loan := reconLoan()
	f := newReconFixture(loan, reconSchedule(loan))

	_, _, err := f.svc.RegisterPayment(ctx, loan.ID, RegisterPaymentRequest{
		Amount: decimal.NewFromInt(3000),
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, f.payments.payments)
	assert.NotEmpty(t, f.ledger.entries)

	loanSvc := NewLoanService(f.loans, f.installments, f.payments, f.ledger,
		NewScheduleService(), NewLateFeeService(), nil)

	err = loanSvc.Delete(ctx, loan.ID, "admin@credimax.do")
	assert.NoError(t, err)
	assert.Nil(t, f.loans.loan)
	assert.Empty(t, f.installments.rows)
	assert.Empty(t, f.payments.payments)
	assert.Empty(t, f.ledger.entries)

	err = loanSvc.Delete(ctx, loan.ID, "admin@credimax.do")
	assert.ErrorIs(t, err, ErrNotFound)
}
