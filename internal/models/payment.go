package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/pkg/dates"
)

// Payment immutably records how a tendered amount was split across
// late fee, interest and principal. Payments are only ever inserted or
// deleted; reconciliation replays the survivors to rebuild state.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	LoanID          uint            `gorm:"not null;index" json:"loan_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_amount"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_amount"`
	LateFee         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"late_fee"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	DueDate         time.Time       `gorm:"type:date" json:"due_date"` // installment due date this payment targets
	PaymentMethod   string          `gorm:"type:varchar(32);default:cash" json:"payment_method"`
	ReferenceNumber string          `gorm:"type:varchar(64)" json:"reference_number"`
	Notes           *string         `gorm:"type:text" json:"notes,omitempty"`
	Status          string          `gorm:"type:varchar(16);default:completed" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusCompleted = "completed"
)

// Payment method constants
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCapital  = "capital" // capital-only paydown, skips interest
)

// ComponentsSum returns the sum of the recorded split.
func (p *Payment) ComponentsSum() decimal.Decimal {
	return p.PrincipalAmount.Add(p.InterestAmount).Add(p.LateFee)
}

// Consistent reports whether amount matches the component split within
// a cent. Inconsistent rows are skipped from replay with a warning.
func (p *Payment) Consistent() bool {
	diff := p.Amount.Sub(p.ComponentsSum()).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(0.01))
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID              uint            `json:"id"`
	LoanID          uint            `json:"loan_id"`
	Amount          decimal.Decimal `json:"amount"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	InterestAmount  decimal.Decimal `json:"interest_amount"`
	LateFee         decimal.Decimal `json:"late_fee"`
	PaymentDate     string          `json:"payment_date"`
	DueDate         string          `json:"due_date"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           *string         `json:"notes,omitempty"`
	Status          string          `json:"status"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		LoanID:          p.LoanID,
		Amount:          p.Amount,
		PrincipalAmount: p.PrincipalAmount,
		InterestAmount:  p.InterestAmount,
		LateFee:         p.LateFee,
		PaymentDate:     dates.Format(p.PaymentDate),
		DueDate:         dates.Format(p.DueDate),
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		Status:          p.Status,
	}
}
