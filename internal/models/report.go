package models

import "time"

// ReportRun records one generated report. Stored locally so /api/reports can
// list past runs.
type ReportRun struct {
	ID        uint `gorm:"primaryKey"`
	BoardID   string
	Start     time.Time
	End       time.Time
	TaskCount int
	Emailed   bool `gorm:"default:false"`
	CreatedAt time.Time
}
