package domain

import "time"

// Todo is the domain entity. It does not depend on Gin, Postgres or S3.
//
// AttachmentURL is derived at read time from the object store and is never
// written back to the database.
type Todo struct {
	ID      string
	OwnerID string
	Name    string
	DueDate string
	Done    bool

	CreatedAt time.Time

	AttachmentURL string
}
