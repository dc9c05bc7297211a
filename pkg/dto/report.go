package dto

type StateTotals struct {
	Pending       int `json:"pending"`
	Confirmed     int `json:"confirmed"`
	FalsePositive int `json:"falsePositive"`
}

type CameraRank struct {
	CameraID int64  `json:"cameraId"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ReportSummary is the backend's aggregated statistics for a time range.
type ReportSummary struct {
	From    string       `json:"from"`
	To      string       `json:"to"`
	Totals  StateTotals  `json:"totals"`
	Ranking []CameraRank `json:"ranking"`
	Daily   []DailyCount `json:"daily"`
}
