package types

type PhaseHoursRequest struct {
	Phase string   `json:"phase" validate:"required"`
	Hours *float64 `json:"hours" validate:"omitempty,gte=0"`
}

type RoleHoursRequest struct {
	Role  string   `json:"role" validate:"required"`
	Hours *float64 `json:"hours" validate:"omitempty,gte=0"`
}

// CommentRequest sets the project comment; a null comment clears it.
type CommentRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=4000"`
}

// ImportAccepted is returned when an import is queued instead of run inline.
type ImportAccepted struct {
	TaskID   string `json:"task_id"`
	Filename string `json:"filename"`
}
