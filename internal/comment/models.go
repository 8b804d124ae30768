package comment

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Comment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Trip      string    `json:"trip"`
	Text      string    `json:"text"`
	Location  string    `json:"location"`
	Rating    int       `json:"rating"`
	Language  string    `json:"language"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy,omitempty"`
	DateStr   string    `json:"dateStr"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitRequest is a review sent from the public site.
type SubmitRequest struct {
	Name     string `json:"name" validate:"required"`
	Trip     string `json:"trip"`
	Text     string `json:"text" validate:"required"`
	Location string `json:"location"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Language string `json:"language" validate:"omitempty,oneof=mn en ko"`
}

// CreateRequest is a review entered by an admin.
type CreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Trip     string `json:"trip"`
	Text     string `json:"text" validate:"required"`
	Location string `json:"location"`
	Rating   int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Language string `json:"language" validate:"required,oneof=mn en ko"`
	Status   string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
}

type Patch struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Text   *string `json:"text" validate:"omitempty,min=1"`
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}
