package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jgrullon/credimax-api/internal/models"
)

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error)
	CreateBatch(ctx context.Context, installments []models.Installment) error
	UpdateBatch(ctx context.Context, installments []models.Installment) error
	DeleteByLoan(ctx context.Context, loanID uint) error
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("installment_number ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&installments).Error
}

// UpdateBatch persists a set of recomputed installment rows. Rows with
// a zero ID are derived installments of an indefinite loan being
// persisted for the first time.
func (r *installmentRepository) UpdateBatch(ctx context.Context, installments []models.Installment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range installments {
			if err := tx.Save(&installments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *installmentRepository) DeleteByLoan(ctx context.Context, loanID uint) error {
	return r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Delete(&models.Installment{}).Error
}
