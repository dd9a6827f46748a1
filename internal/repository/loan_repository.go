package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jgrullon/credimax-api/internal/models"
)

// LoanAggregates holds the aggregate fields recomputed on the database
// side from the surviving payment and installment rows. This is the
// authoritative value the reconciliation path prefers over its own
// in-memory estimate.
type LoanAggregates struct {
	RemainingBalance decimal.Decimal
	NextPaymentDate  *time.Time
}

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error)
	FindActive(ctx context.Context) ([]models.Loan, error)
	Create(ctx context.Context, loan *models.Loan) error
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error)
	ReadAggregates(ctx context.Context, loanID uint) (*LoanAggregates, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date ASC, id ASC")
		}).
		Preload("LedgerEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entry_date ASC, id ASC")
		}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindActive(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ?", models.LoanStatusActive).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Loan{}, id).Error
}

func (r *loanRepository) List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Search != "" {
		db = db.Where("client_name ILIKE ?", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sortDir := "desc"
	if query.SortDir == "asc" {
		sortDir = "asc"
	}

	offset := (query.Page - 1) * query.PerPage
	err := db.Order(sortBy + " " + sortDir).
		Limit(query.PerPage).
		Offset(offset).
		Find(&loans).Error
	return loans, total, err
}

// ReadAggregates recomputes remaining balance and next due date from
// the stored rows in a single round trip:
// balance = amount + charges - principal collected by surviving payments.
func (r *loanRepository) ReadAggregates(ctx context.Context, loanID uint) (*LoanAggregates, error) {
	var row struct {
		Balance decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT l.amount
		     + COALESCE((SELECT SUM(e.amount) FROM loan_ledger_entries e
		                 WHERE e.loan_id = l.id AND e.entry_type = ?), 0)
		     - COALESCE((SELECT SUM(p.principal_amount) FROM payments p
		                 WHERE p.loan_id = l.id), 0) AS balance
		FROM loans l WHERE l.id = ?`,
		models.EntryTypeCharge, loanID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	agg := &LoanAggregates{RemainingBalance: row.Balance}

	var next struct {
		DueDate *time.Time
	}
	err = r.db.WithContext(ctx).Raw(`
		SELECT MIN(due_date) AS due_date FROM installments
		WHERE loan_id = ? AND is_paid = false AND is_settled = false`,
		loanID).
		Scan(&next).Error
	if err != nil {
		return nil, err
	}
	agg.NextPaymentDate = next.DueDate

	return agg, nil
}
