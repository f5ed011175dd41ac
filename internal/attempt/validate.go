package attempt

import (
	"fmt"

	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
)

// Report summarizes how complete a draft is against the exam it was
// started from.
type Report struct {
	Answered   int
	Total      int
	Unanswered []string
}

func (r Report) Complete() bool {
	return r.Answered == r.Total
}

// ValidateAgainst checks every recorded answer against the exam's
// questions: unknown questions, empty selections and multi-select on
// single-choice questions are all rejected before submit.
func ValidateAgainst(d Draft, e exam.Exam) (Report, error) {
	questions := make(map[string]exam.Question, len(e.Questions))

	for _, q := range e.Questions {
		questions[q.ID] = q
	}

	for qID, optIDs := range d.Answers {
		q, ok := questions[qID]

		if !ok {
			return Report{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, qID)
		}

		if len(optIDs) == 0 {
			return Report{}, fmt.Errorf("%w: question %s", ErrEmptySelection, qID)
		}

		if !q.Multiple && len(optIDs) > 1 {
			return Report{}, fmt.Errorf("%w: question %s", ErrSingleChoice, qID)
		}

		valid := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			valid[opt.ID] = true
		}

		for _, optID := range optIDs {
			if !valid[optID] {
				return Report{}, fmt.Errorf("option %s does not belong to question %s", optID, qID)
			}
		}
	}

	report := Report{Total: len(e.Questions)}

	for _, q := range e.Questions {
		if len(d.Answers[q.ID]) > 0 {
			report.Answered++
		} else {
			report.Unanswered = append(report.Unanswered, q.ID)
		}
	}

	return report, nil
}
