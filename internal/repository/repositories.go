package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Loan        LoanRepository
	Installment InstallmentRepository
	Payment     PaymentRepository
	Ledger      LedgerRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Loan:        NewLoanRepository(db),
		Installment: NewInstallmentRepository(db),
		Payment:     NewPaymentRepository(db),
		Ledger:      NewLedgerRepository(db),
	}
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Status  string
	LoanID  uint
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
	}
}
