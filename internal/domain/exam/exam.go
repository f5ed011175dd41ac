package exam

import "time"

type Exam struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	SectionID       string     `json:"sectionId"`
	SectionName     string     `json:"sectionName,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	TotalPoints     int        `json:"totalPoints"`
	QuestionCount   int        `json:"questionCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	Questions       []Question `json:"questions,omitempty"` // only present on detail fetches
}

type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Points   int      `json:"points"`
	Multiple bool     `json:"multiple"`
	Options  []Option `json:"options"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	SectionID *string
	Query     *string
	Limit     int
	Cursor    string
}

type Submission struct {
	Answers []Answer `json:"answers" validate:"required,min=1,dive"`
}

type Answer struct {
	QuestionID string   `json:"questionId" validate:"required"`
	OptionIDs  []string `json:"optionIds" validate:"required,min=1"`
}

// admin management payloads

type CreateExamRequest struct {
	Title           string                  `json:"title" validate:"required,min=3,max=120"`
	SectionID       string                  `json:"sectionId" validate:"required"`
	DurationMinutes int                     `json:"durationMinutes" validate:"required,min=1,max=600"`
	Questions       []CreateQuestionRequest `json:"questions" validate:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Text     string   `json:"text" validate:"required,min=3,max=1000"`
	Points   int      `json:"points" validate:"required,min=1,max=100"`
	Multiple bool     `json:"multiple"`
	Options  []string `json:"options" validate:"required,min=2,max=10,dive,required"`
	Correct  []int    `json:"correct" validate:"required,min=1"`
}

type UpdateExamRequest struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	SectionID       *string `json:"sectionId,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty" validate:"omitempty,min=1,max=600"`
}
