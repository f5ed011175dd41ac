package section

type Section struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ExamCount   int    `json:"examCount"`
}

type CreateSectionRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type UpdateSectionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
