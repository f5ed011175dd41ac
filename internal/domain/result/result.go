package result

import "time"

type Result struct {
	ID          string           `json:"id"`
	ExamID      string           `json:"examId"`
	ExamTitle   string           `json:"examTitle,omitempty"`
	Score       int              `json:"score"`
	TotalPoints int              `json:"totalPoints"`
	Percent     float64          `json:"percent"`
	Passed      bool             `json:"passed"`
	SubmittedAt time.Time        `json:"submittedAt"`
	Breakdown   []QuestionResult `json:"breakdown,omitempty"`
}

type QuestionResult struct {
	QuestionID string `json:"questionId"`
	Points     int    `json:"points"`
	Earned     int    `json:"earned"`
	Correct    bool   `json:"correct"`
}
