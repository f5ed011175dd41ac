package attempt

import (
	"errors"
	"testing"
)

func TestStatus_Transitions(t *testing.T) {
	if !StatusInProgress.CanTransition(StatusSubmitted) {
		t.Fatalf("in_progress -> submitted must be allowed")
	}

	if StatusSubmitted.CanTransition(StatusInProgress) {
		t.Fatalf("submitted -> in_progress must be rejected")
	}

	if StatusSubmitted.CanTransition(StatusSubmitted) {
		t.Fatalf("submitted -> submitted must be rejected")
	}
}

func TestDraft_AnswerAfterSubmitFails(t *testing.T) {
	d := NewDraft(sampleExam())

	if err := d.Answer("q-1", []string{"o-2"}); err != nil {
		t.Fatalf("Answer error: %v", err)
	}

	if err := d.MarkSubmitted(); err != nil {
		t.Fatalf("MarkSubmitted error: %v", err)
	}

	if err := d.Answer("q-2", []string{"o-3"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	if err := d.MarkSubmitted(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("double submit should fail, got %v", err)
	}
}

func TestValidateAgainst(t *testing.T) {
	e := sampleExam()

	d := NewDraft(e)
	_ = d.Answer("q-1", []string{"o-2"})
	_ = d.Answer("q-2", []string{"o-3", "o-5"})

	report, err := ValidateAgainst(d, e)
	if err != nil {
		t.Fatalf("ValidateAgainst error: %v", err)
	}
	if !report.Complete() {
		t.Fatalf("expected complete report, got %+v", report)
	}
}

func TestValidateAgainst_UnknownQuestion(t *testing.T) {
	e := sampleExam()

	d := NewDraft(e)
	d.Answers["q-404"] = []string{"o-1"}

	if _, err := ValidateAgainst(d, e); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestValidateAgainst_SingleChoiceWithMultipleOptions(t *testing.T) {
	e := sampleExam()

	d := NewDraft(e)
	d.Answers["q-1"] = []string{"o-1", "o-2"}

	if _, err := ValidateAgainst(d, e); !errors.Is(err, ErrSingleChoice) {
		t.Fatalf("expected ErrSingleChoice, got %v", err)
	}
}

func TestValidateAgainst_IncompleteReport(t *testing.T) {
	e := sampleExam()

	d := NewDraft(e)
	_ = d.Answer("q-1", []string{"o-2"})

	report, err := ValidateAgainst(d, e)
	if err != nil {
		t.Fatalf("ValidateAgainst error: %v", err)
	}

	if report.Complete() {
		t.Fatalf("one of two answered should not be complete")
	}
	if len(report.Unanswered) != 1 || report.Unanswered[0] != "q-2" {
		t.Fatalf("unexpected unanswered list: %+v", report.Unanswered)
	}
}

func TestBuildSubmission(t *testing.T) {
	d := NewDraft(sampleExam())
	_ = d.Answer("q-1", []string{"o-2"})

	sub := BuildSubmission(d)

	if len(sub.Answers) != 1 {
		t.Fatalf("expected one answer, got %d", len(sub.Answers))
	}
	if sub.Answers[0].QuestionID != "q-1" || sub.Answers[0].OptionIDs[0] != "o-2" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}
