package models

import "time"

// Item is a resource owned by exactly one user. OwnerID is set on creation
// and never changed afterwards.
type Item struct {
	ID          int64
	Title       string
	Description *string
	Price       *float64
	OwnerID     int64
	// AttachmentKey is the object-storage key of the uploaded attachment,
	// empty when there is none.
	AttachmentKey string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Skip    int
	Limit   int
	OwnerID *int64
}

// AttachmentUpload instructs the client to upload a file using a presigned URL.
type AttachmentUpload struct {
	ItemID int64
	Key    string
	URL    string
}
