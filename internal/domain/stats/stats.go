package stats

type AdminStats struct {
	TotalUsers          int        `json:"totalUsers"`
	TotalExams          int        `json:"totalExams"`
	TotalSections       int        `json:"totalSections"`
	TotalSubmissions    int        `json:"totalSubmissions"`
	AverageScore        float64    `json:"averageScore"`
	SubmissionsLast7Days []DayCount `json:"submissionsLast7Days,omitempty"`
}

type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}
