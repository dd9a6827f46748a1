package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Actor     string    `gorm:"size:120;not null" json:"actor"` // email from the auth token
	Action    string    `gorm:"size:50;not null" json:"action"` // CREATE, DELETE, CHARGE, WAIVE, SETTLE
	Entity    string    `gorm:"size:50;not null" json:"entity"` // Loan, Payment
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
