package services

import (
	"github.com/jgrullon/credimax-api/internal/config"
	"github.com/jgrullon/credimax-api/internal/jobs"
	"github.com/jgrullon/credimax-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Schedule       *ScheduleService
	LateFee        *LateFeeService
	Allocator      *AllocatorService
	Reconciliation *ReconciliationService
	Loan           *LoanService
	Audit          *AuditService
	Job            *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB) *Services {
	auditSvc := NewAuditService(db)
	scheduleSvc := NewScheduleService()
	lateFeeSvc := NewLateFeeService()
	allocatorSvc := NewAllocatorService(lateFeeSvc)

	reconciliationSvc := NewReconciliationService(
		repos.Loan, repos.Installment, repos.Payment, repos.Ledger,
		scheduleSvc, lateFeeSvc, allocatorSvc, auditSvc,
		cfg.AggregateSettleDelay,
	)

	return &Services{
		Schedule:       scheduleSvc,
		LateFee:        lateFeeSvc,
		Allocator:      allocatorSvc,
		Reconciliation: reconciliationSvc,
		Loan:           NewLoanService(repos.Loan, repos.Installment, repos.Payment, repos.Ledger, scheduleSvc, lateFeeSvc, auditSvc),
		Audit:          auditSvc,
		Job:            NewJobService(worker),
	}
}
