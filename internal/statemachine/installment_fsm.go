package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/jgrullon/credimax-api/internal/models"
	"github.com/jgrullon/credimax-api/pkg/dates"
)

// InstallmentFSM wraps an installment with its state machine.
// Forward transitions happen through payments, backward transitions
// through deletion replay, and settle through a loan-level settlement.
type InstallmentFSM struct {
	installment *models.Installment
	fsm         *fsm.FSM
}

// NewInstallmentFSM creates a new installment state machine
func NewInstallmentFSM(installment *models.Installment) *InstallmentFSM {
	ifsm := &InstallmentFSM{
		installment: installment,
	}

	ifsm.fsm = fsm.NewFSM(
		installment.DisplayStatus(),
		fsm.Events{
			// pending → partial (partial payment received)
			{Name: "advance", Src: []string{models.InstallmentStatusPending}, Dst: models.InstallmentStatusPartial},

			// pending/partial → paid (scheduled amounts covered)
			{Name: "pay", Src: []string{models.InstallmentStatusPending, models.InstallmentStatusPartial}, Dst: models.InstallmentStatusPaid},

			// paid → partial (deletion replay left a remainder)
			{Name: "demote", Src: []string{models.InstallmentStatusPaid}, Dst: models.InstallmentStatusPartial},

			// paid/partial → pending (deletion replay removed everything)
			{Name: "revert", Src: []string{models.InstallmentStatusPaid, models.InstallmentStatusPartial}, Dst: models.InstallmentStatusPending},

			// pending/partial → settled (loan-level settlement, terminal for display)
			{Name: "settle", Src: []string{models.InstallmentStatusPending, models.InstallmentStatusPartial}, Dst: models.InstallmentStatusSettled},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Advance transitions the installment to partial
func (i *InstallmentFSM) Advance(ctx context.Context) error {
	if err := i.fsm.Event(ctx, "advance"); err != nil {
		return fmt.Errorf("cannot mark installment #%d partial: %w", i.installment.InstallmentNumber, err)
	}
	i.installment.Status = i.fsm.Current()
	return nil
}

// Pay transitions the installment to paid as of the given date
func (i *InstallmentFSM) Pay(ctx context.Context, paidDate time.Time) error {
	if err := i.fsm.Event(ctx, "pay"); err != nil {
		return fmt.Errorf("cannot mark installment #%d paid: %w", i.installment.InstallmentNumber, err)
	}
	d := dates.Truncate(paidDate)
	i.installment.Status = i.fsm.Current()
	i.installment.IsPaid = true
	i.installment.PaidDate = &d
	return nil
}

// Demote reverts a paid installment back to partial
func (i *InstallmentFSM) Demote(ctx context.Context) error {
	if err := i.fsm.Event(ctx, "demote"); err != nil {
		return fmt.Errorf("cannot demote installment #%d: %w", i.installment.InstallmentNumber, err)
	}
	i.installment.Status = i.fsm.Current()
	i.installment.IsPaid = false
	i.installment.PaidDate = nil
	return nil
}

// Revert returns a paid or partial installment to pending
func (i *InstallmentFSM) Revert(ctx context.Context) error {
	if err := i.fsm.Event(ctx, "revert"); err != nil {
		return fmt.Errorf("cannot revert installment #%d: %w", i.installment.InstallmentNumber, err)
	}
	i.installment.Status = i.fsm.Current()
	i.installment.IsPaid = false
	i.installment.PaidDate = nil
	return nil
}

// Settle marks the installment satisfied by a loan-level settlement.
// The underlying is_paid flag stays false.
func (i *InstallmentFSM) Settle(ctx context.Context) error {
	if err := i.fsm.Event(ctx, "settle"); err != nil {
		return fmt.Errorf("cannot settle installment #%d: %w", i.installment.InstallmentNumber, err)
	}
	i.installment.Status = models.InstallmentStatusSettled
	i.installment.IsSettled = true
	return nil
}

// Current returns the current state
func (i *InstallmentFSM) Current() string {
	return i.fsm.Current()
}

// Can checks if a transition is possible
func (i *InstallmentFSM) Can(event string) bool {
	return i.fsm.Can(event)
}
