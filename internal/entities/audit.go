package entities

import "time"

type AuditEventType string

const (
	AuditEventBorrow  AuditEventType = "borrow"
	AuditEventReturn  AuditEventType = "return"
	AuditEventCatalog AuditEventType = "catalog"
	AuditEventSweep   AuditEventType = "sweep"
	AuditEventAuth    AuditEventType = "auth"
	AuditEventUser    AuditEventType = "user"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      string         `gorm:"index;size:36" json:"userId,omitempty"` // empty for system jobs
	EventType   AuditEventType `gorm:"index;size:50" json:"eventType"`
	Action      string         `gorm:"size:100" json:"action"` // e.g. "book_create", "borrow"
	Description string         `gorm:"size:500" json:"description"`
	EntityType  string         `gorm:"size:50" json:"entityType"`
	EntityID    string         `gorm:"index;size:36" json:"entityId,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	IPAddress   string         `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"userAgent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"errorMsg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
