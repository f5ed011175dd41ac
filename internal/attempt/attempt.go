package attempt

import (
	"errors"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusSubmitted:
		return true
	default:
		return false
	}
}

// CanTransition allows exactly one move: in_progress -> submitted.
// A submitted draft is frozen.
func (s Status) CanTransition(to Status) bool {
	return s == StatusInProgress && to == StatusSubmitted
}

var (
	ErrNotFound         = errors.New("no draft for this exam")
	ErrAlreadySubmitted = errors.New("draft already submitted")
	ErrUnknownQuestion  = errors.New("answer references an unknown question")
	ErrEmptySelection   = errors.New("answer has no selected options")
	ErrSingleChoice     = errors.New("multiple options selected on a single-choice question")
)

// Draft is the locally-owned record of an exam in progress. Answers
// map question ids to selected option ids.
type Draft struct {
	ExamID        string              `json:"examId"`
	ExamTitle     string              `json:"examTitle"`
	QuestionCount int                 `json:"questionCount"`
	Answers       map[string][]string `json:"answers"`
	Status        Status              `json:"status"`
	StartedAt     time.Time           `json:"startedAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// NewDraft starts a fresh draft for the given exam.
func NewDraft(e exam.Exam) Draft {
	now := time.Now().UTC()

	return Draft{
		ExamID:        e.ID,
		ExamTitle:     e.Title,
		QuestionCount: len(e.Questions),
		Answers:       make(map[string][]string),
		Status:        StatusInProgress,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Answer records a selection, replacing any previous one for the same
// question.
func (d *Draft) Answer(questionID string, optionIDs []string) error {
	if d.Status != StatusInProgress {
		return ErrAlreadySubmitted
	}

	if len(optionIDs) == 0 {
		return ErrEmptySelection
	}

	if d.Answers == nil {
		d.Answers = make(map[string][]string)
	}

	d.Answers[questionID] = optionIDs
	d.UpdatedAt = time.Now().UTC()

	return nil
}

// MarkSubmitted freezes the draft after a successful submit.
func (d *Draft) MarkSubmitted() error {
	if !d.Status.CanTransition(StatusSubmitted) {
		return ErrAlreadySubmitted
	}

	d.Status = StatusSubmitted
	d.UpdatedAt = time.Now().UTC()

	return nil
}

// BuildSubmission turns the draft into the submit payload.
func BuildSubmission(d Draft) exam.Submission {
	answers := make([]exam.Answer, 0, len(d.Answers))

	for qID, optIDs := range d.Answers {
		answers = append(answers, exam.Answer{QuestionID: qID, OptionIDs: optIDs})
	}

	return exam.Submission{Answers: answers}
}
