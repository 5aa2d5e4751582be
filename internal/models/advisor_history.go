package models

import "time"

// AdvisorHistory is one stored advisor run: the profile the user
// submitted and the recommendation list that came back, both as JSON
// text. Capped at the 3 most recent rows per user.
type AdvisorHistory struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Profile         string    `gorm:"type:text" json:"profile"`
	Recommendations string    `gorm:"type:text" json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the table name used by AdvisorHistory to `advisor_history`
func (AdvisorHistory) TableName() string {
	return "advisor_history"
}
