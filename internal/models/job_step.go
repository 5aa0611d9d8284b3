package models

import "time"

// JobStep stores the output of a named step of one dispatched event so a
// redelivered event can skip work that already finished.
type JobStep struct {
	RunID     string    `gorm:"type:text;primaryKey" json:"run_id"`
	Step      string    `gorm:"type:text;primaryKey" json:"step"`
	Output    string    `gorm:"type:text;not null" json:"output"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"created_at"`
}

func (JobStep) TableName() string {
	return "job_steps"
}
