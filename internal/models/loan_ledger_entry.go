package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanLedgerEntry is the audit trail of balance-affecting events on a
// loan. Every entry snapshots the balance before and after, computed
// against principal plus all prior charges so balances never appear to
// regress in the history view.
type LoanLedgerEntry struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	LoanID        uint            `json:"loan_id" gorm:"not null;index"`
	PaymentID     *uint           `json:"payment_id,omitempty" gorm:"index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	BalanceBefore decimal.Decimal `json:"balance_before" gorm:"type:decimal(15,2)"`
	BalanceAfter  decimal.Decimal `json:"balance_after" gorm:"type:decimal(15,2)"`
	Description   string          `json:"description" gorm:"not null"`
	EntryType     string          `json:"entry_type" gorm:"not null;index"`
	EntryDate     time.Time       `json:"entry_date" gorm:"not null;default:current_timestamp"`
	CreatedAt     time.Time       `json:"created_at"`

	// Relationships
	Loan    *Loan    `json:"loan,omitempty" gorm:"foreignKey:LoanID"`
	Payment *Payment `json:"payment,omitempty" gorm:"foreignKey:PaymentID"`
}

// Entry type constants
const (
	EntryTypePayment    = "payment"    // payment received
	EntryTypeReversal   = "reversal"   // payment deleted, state replayed
	EntryTypeCharge     = "charge"     // ad-hoc charge added to the loan
	EntryTypeWaiver     = "waiver"     // late fee forgiven
	EntryTypeCapital    = "capital"    // capital-only paydown
	EntryTypeSettlement = "settlement" // loan-level settlement event
)

// TableName specifies the table name for GORM
func (LoanLedgerEntry) TableName() string {
	return "loan_ledger_entries"
}

// LoanLedgerEntryResponse is the JSON response format for ledger entries
type LoanLedgerEntryResponse struct {
	ID            uint            `json:"id"`
	LoanID        uint            `json:"loan_id"`
	PaymentID     *uint           `json:"payment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	EntryType     string          `json:"entry_type"`
	EntryDate     time.Time       `json:"entry_date"`
}

// ToResponse converts LoanLedgerEntry to LoanLedgerEntryResponse
func (e *LoanLedgerEntry) ToResponse() LoanLedgerEntryResponse {
	return LoanLedgerEntryResponse{
		ID:            e.ID,
		LoanID:        e.LoanID,
		PaymentID:     e.PaymentID,
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Description:   e.Description,
		EntryType:     e.EntryType,
		EntryDate:     e.EntryDate,
	}
}
