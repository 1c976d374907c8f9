package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DueDate parses dueDate from JSON as either date-only ("2006-01-02") or
// RFC3339. Either way it is stored as the date-only string, which is the wire
// and database format for due dates.
type DueDate struct{ s string }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.s = ""
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02", // date only
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			d.s = parsed.Format("2006-01-02")
			return nil
		}
	}
	return fmt.Errorf("dueDate: use date (YYYY-MM-DD) or RFC3339 datetime")
}

// String returns the normalized date-only value, or "" if unset.
func (d DueDate) String() string { return d.s }

type CreateTodoRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=120"`
	DueDate DueDate `json:"dueDate"` // optional: "2026-02-19" or RFC3339
}

type UpdateTodoRequest struct {
	Name    *string  `json:"name" binding:"omitempty,min=1,max=120"`
	DueDate *DueDate `json:"dueDate"` // nil = keep current value
	Done    *bool    `json:"done"`
}

type TodoResponse struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Name          string    `json:"name"`
	DueDate       string    `json:"dueDate"`
	Done          bool      `json:"done"`
	CreatedAt     time.Time `json:"createdAt"`
	AttachmentURL string    `json:"attachmentUrl,omitempty"`
}

type ListTodosResponse struct {
	Items []TodoResponse `json:"items"`
}

type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}
