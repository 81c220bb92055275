package models

import "time"

// ScheduleEntry is one row of the report scheduler table. Exactly one of
// RoleID and UserID is expected to be non-zero; a row with both zero expands
// to no recipients.
type ScheduleEntry struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	RoleID    int       `gorm:"column:role_id"`
	UserID    int       `gorm:"column:user_id"`
	SliceID   int       `gorm:"column:slice_id;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	IsActive  bool      `gorm:"column:is_active;default:true"`
}

func (ScheduleEntry) TableName() string {
	return "superset_report_scheduler"
}
