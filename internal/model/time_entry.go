package model

import "time"

// TimeEntry はプロジェクトに対して記録された作業時間を表す。
// Durationは分単位。
type TimeEntry struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"projectId"`
	UserID     int64     `json:"userId"`
	Task       string    `json:"task"`
	Date       time.Time `json:"date"`
	Duration   int       `json:"duration"`
	Notes      *string   `json:"notes"`
	IsBillable bool      `json:"isBillable"`
}

// TimeEntryInput は工数記録の作成・全置換更新で使用する入力値。
type TimeEntryInput struct {
	ProjectID  int64
	UserID     int64
	Task       string
	Date       time.Time
	Duration   int
	Notes      *string
	IsBillable bool
}
