package model

// Stats は期間内の工数を集計した結果を表す。永続化されない。
type Stats struct {
	WeeklyHours      float64        `json:"weeklyHours"`
	BillableHours    float64        `json:"billableHours"`
	BillableAmount   float64        `json:"billableAmount"`
	UtilizationRate  float64        `json:"utilizationRate"`
	ProjectBreakdown []ProjectStats `json:"projectBreakdown"`
	DailyActivity    []DayActivity  `json:"dailyActivity"`
}

// ProjectStats はプロジェクト別の集計行。
type ProjectStats struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Hours      float64 `json:"hours"`
	Percentage float64 `json:"percentage"`
}

// DayActivity は曜日別の集計行。Dayは Mon〜Sun のラベル。
type DayActivity struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}
