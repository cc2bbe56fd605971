package dto

// MessageRequest carries a free-text student message. StudentID is taken from
// the token for students and must be supplied by staff acting on their behalf.
type MessageRequest struct {
	StudentID string `json:"student_id"`
	Text      string `json:"text" binding:"required,max=2000"`
}
