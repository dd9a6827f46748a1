package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jgrullon/credimax-api/pkg/dates"
)

// Loan represents a financed amount repaid in periodic installments.
type Loan struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ClientName       string          `gorm:"not null" json:"client_name"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate     decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"interest_rate"` // percent per period
	TermMonths       int             `json:"term_months"`                                     // unused for indefinite loans
	PaymentFrequency dates.Frequency `gorm:"type:varchar(16);default:monthly;not null" json:"payment_frequency"`
	AmortizationType string          `gorm:"type:varchar(16);default:fixed;not null" json:"amortization_type"`
	StartDate        time.Time       `gorm:"type:date;not null" json:"start_date"`
	FirstPaymentDate *time.Time      `gorm:"type:date" json:"first_payment_date"`
	MonthlyPayment   decimal.Decimal `gorm:"type:decimal(15,2)" json:"monthly_payment"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(15,2)" json:"remaining_balance"`
	NextPaymentDate  *time.Time      `gorm:"type:date" json:"next_payment_date"`
	Status           string          `gorm:"type:varchar(16);default:active;index" json:"status"`

	// Late-fee policy
	LateFeeEnabled         bool            `gorm:"default:false" json:"late_fee_enabled"`
	LateFeeRate            decimal.Decimal `gorm:"type:decimal(8,4)" json:"late_fee_rate"` // percent
	GracePeriodDays        int             `json:"grace_period_days"`
	MaxLateFee             decimal.Decimal `gorm:"type:decimal(15,2)" json:"max_late_fee"`
	LateFeeCalculationType string          `gorm:"type:varchar(16);default:daily" json:"late_fee_calculation_type"`
	CurrentLateFee         decimal.Decimal `gorm:"type:decimal(15,2)" json:"current_late_fee"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Installments  []Installment     `gorm:"foreignKey:LoanID" json:"installments,omitempty"`
	Payments      []Payment         `gorm:"foreignKey:LoanID" json:"payments,omitempty"`
	LedgerEntries []LoanLedgerEntry `gorm:"foreignKey:LoanID" json:"ledger_entries,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusActive = "active"
	LoanStatusPaid   = "paid"
)

// Amortization type constants
const (
	AmortizationFixed      = "fixed"
	AmortizationIndefinite = "indefinite"
)

// Late-fee calculation type constants
const (
	LateFeeCalcDaily    = "daily"
	LateFeeCalcMonthly  = "monthly"
	LateFeeCalcCompound = "compound"
)

// IsIndefinite reports whether the loan has no fixed term.
func (l *Loan) IsIndefinite() bool {
	return l.AmortizationType == AmortizationIndefinite
}

// IsPaid reports whether the loan has been fully satisfied.
func (l *Loan) IsPaid() bool {
	return l.Status == LoanStatusPaid
}

// ScheduleAnchor returns the date the first installment comes due. When
// first_payment_date is absent or coincides with start_date, the first
// due date is one period after start_date: a due date never falls on
// the day the loan was issued.
func (l *Loan) ScheduleAnchor() time.Time {
	if l.FirstPaymentDate != nil && !dates.SameDate(*l.FirstPaymentDate, l.StartDate) {
		return dates.Truncate(*l.FirstPaymentDate)
	}
	return dates.Step(l.StartDate, l.PaymentFrequency, 1)
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID               uint                  `json:"id"`
	ClientName       string                `json:"client_name"`
	Amount           decimal.Decimal       `json:"amount"`
	InterestRate     decimal.Decimal       `json:"interest_rate"`
	TermMonths       int                   `json:"term_months"`
	PaymentFrequency dates.Frequency       `json:"payment_frequency"`
	AmortizationType string                `json:"amortization_type"`
	StartDate        string                `json:"start_date"`
	FirstPaymentDate *string               `json:"first_payment_date"`
	MonthlyPayment   decimal.Decimal       `json:"monthly_payment"`
	RemainingBalance decimal.Decimal       `json:"remaining_balance"`
	NextPaymentDate  *string               `json:"next_payment_date"`
	CurrentLateFee   decimal.Decimal       `json:"current_late_fee"`
	Status           string                `json:"status"`
	Installments     []InstallmentResponse `json:"installments,omitempty"`
	Payments         []PaymentResponse     `json:"payments,omitempty"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	resp := LoanResponse{
		ID:               l.ID,
		ClientName:       l.ClientName,
		Amount:           l.Amount,
		InterestRate:     l.InterestRate,
		TermMonths:       l.TermMonths,
		PaymentFrequency: l.PaymentFrequency,
		AmortizationType: l.AmortizationType,
		StartDate:        dates.Format(l.StartDate),
		MonthlyPayment:   l.MonthlyPayment,
		RemainingBalance: l.RemainingBalance,
		CurrentLateFee:   l.CurrentLateFee,
		Status:           l.Status,
	}
	if l.FirstPaymentDate != nil {
		s := dates.Format(*l.FirstPaymentDate)
		resp.FirstPaymentDate = &s
	}
	if l.NextPaymentDate != nil {
		s := dates.Format(*l.NextPaymentDate)
		resp.NextPaymentDate = &s
	}
	for _, inst := range l.Installments {
		resp.Installments = append(resp.Installments, inst.ToResponse())
	}
	for _, p := range l.Payments {
		resp.Payments = append(resp.Payments, p.ToResponse())
	}
	return resp
}
