package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jgrullon/credimax-api/internal/models"
)

// LedgerRepository defines the interface for loan ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LoanLedgerEntry) error
	FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error)
	SumByType(ctx context.Context, loanID uint, entryType string) (decimal.Decimal, error)
	DeleteByLoanID(ctx context.Context, loanID uint) error
}

// ledgerRepository handles database operations for loan ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.LoanLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByLoanID retrieves all ledger entries for a loan
func (r *ledgerRepository) FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error) {
	var entries []models.LoanLedgerEntry
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

// SumByType totals the entries of one type for a loan. Used for the
// outstanding-charges component of the balance baseline.
func (r *ledgerRepository) SumByType(ctx context.Context, loanID uint, entryType string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.LoanLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("loan_id = ? AND entry_type = ?", loanID, entryType).
		Scan(&result).Error
	return result.Total, err
}

// DeleteByLoanID removes all ledger entries for a loan
func (r *ledgerRepository) DeleteByLoanID(ctx context.Context, loanID uint) error {
	return r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Delete(&models.LoanLedgerEntry{}).Error
}
