package attempt

import (
	"encoding/json"
	"fmt"
)

var (
	ErrInvalidDraft       = fmt.Errorf("invalid draft payload")
	ErrInvalidDraftStatus = fmt.Errorf("invalid draft status")
)

// EncodeDraft serializes a draft after shape checks, so a bad value
// never lands on disk.
func EncodeDraft(d Draft) ([]byte, error) {
	if d.ExamID == "" {
		return nil, ErrInvalidDraft
	}

	if !d.Status.IsValid() {
		return nil, ErrInvalidDraftStatus
	}

	b, err := json.Marshal(d)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	return b, nil
}

// DecodeDraft unmarshals and re-checks a stored draft. Files written
// by older builds or edited by hand fail here, not deeper in.
func DecodeDraft(b []byte) (Draft, error) {
	if len(b) == 0 {
		return Draft{}, ErrInvalidDraft
	}

	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	if d.ExamID == "" {
		return Draft{}, ErrInvalidDraft
	}

	if !d.Status.IsValid() {
		return Draft{}, ErrInvalidDraftStatus
	}

	if d.Answers == nil {
		d.Answers = make(map[string][]string)
	}

	return d, nil
}
