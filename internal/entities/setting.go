package entities

import (
	"time"
)

// Setting is a persisted key/value pair for runtime state that must survive
// restarts, such as the outcome of the last overdue sweep.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeySweepLastAt      = "sweep_last_at"
	SettingKeySweepLastStatus  = "sweep_last_status"
	SettingKeySweepLastMessage = "sweep_last_message"
	SettingKeySweepLastMarked  = "sweep_last_marked"
)
