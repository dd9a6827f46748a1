package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/pkg/dates"
)

// Installment is one scheduled obligation within a loan's amortization
// schedule. For indefinite loans, rows beyond the first are derived on
// demand and only persisted once a payment touches them.
type Installment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	LoanID            uint            `gorm:"not null;index" json:"loan_id"`
	InstallmentNumber int             `gorm:"not null;index" json:"installment_number"` // 1-based, never reused
	DueDate           time.Time       `gorm:"type:date;not null" json:"due_date"`
	PrincipalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_amount"`
	InterestAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_amount"`
	PrincipalPaid     decimal.Decimal `gorm:"type:decimal(15,2)" json:"principal_paid"`
	InterestPaid      decimal.Decimal `gorm:"type:decimal(15,2)" json:"interest_paid"`
	LateFeePaid       decimal.Decimal `gorm:"type:decimal(15,2)" json:"late_fee_paid"`
	Status            string          `gorm:"type:varchar(16);default:pending;index" json:"status"`
	IsPaid            bool            `gorm:"default:false" json:"is_paid"`
	IsSettled         bool            `gorm:"default:false" json:"is_settled"`
	PaidDate          *time.Time      `gorm:"type:date" json:"paid_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPartial = "partial"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusSettled = "settled"
)

// Satisfied reports whether the obligation no longer counts toward the
// balance: paid individually or covered by a loan-level settlement.
// is_settled takes display precedence, but for balance math both mean
// the same thing.
func (i *Installment) Satisfied() bool {
	return i.IsPaid || i.IsSettled
}

// IsOverdue reports whether the installment accrues late fee as of the
// given date. Paid or settled installments never accrue.
func (i *Installment) IsOverdue(asOf time.Time) bool {
	if i.Satisfied() {
		return false
	}
	return dates.Truncate(i.DueDate).Before(dates.Truncate(asOf))
}

// DisplayStatus resolves the status shown to the UI; settled wins over
// paid when both could apply.
func (i *Installment) DisplayStatus() string {
	if i.IsSettled {
		return InstallmentStatusSettled
	}
	return i.Status
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID                uint            `json:"id"`
	LoanID            uint            `json:"loan_id"`
	InstallmentNumber int             `json:"installment_number"`
	DueDate           string          `json:"due_date"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount"`
	PrincipalPaid     decimal.Decimal `json:"principal_paid"`
	InterestPaid      decimal.Decimal `json:"interest_paid"`
	LateFeePaid       decimal.Decimal `json:"late_fee_paid"`
	Status            string          `json:"status"`
	IsPaid            bool            `json:"is_paid"`
	IsSettled         bool            `json:"is_settled"`
	PaidDate          *string         `json:"paid_date"`
}

// ToResponse converts Installment to InstallmentResponse
func (i *Installment) ToResponse() InstallmentResponse {
	resp := InstallmentResponse{
		ID:                i.ID,
		LoanID:            i.LoanID,
		InstallmentNumber: i.InstallmentNumber,
		DueDate:           dates.Format(i.DueDate),
		PrincipalAmount:   i.PrincipalAmount,
		InterestAmount:    i.InterestAmount,
		PrincipalPaid:     i.PrincipalPaid,
		InterestPaid:      i.InterestPaid,
		LateFeePaid:       i.LateFeePaid,
		Status:            i.DisplayStatus(),
		IsPaid:            i.IsPaid,
		IsSettled:         i.IsSettled,
	}
	if i.PaidDate != nil {
		s := dates.Format(*i.PaidDate)
		resp.PaidDate = &s
	}
	return resp
}
