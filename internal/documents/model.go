package documents

import "time"

// Document represents one uploaded file and its processing state. The store
// assigns IDs; everything except Status and ExtractedText is immutable after
// creation.
type Document struct {
	ID               int64
	OriginalFilename string
	StoragePath      string
	MimeType         string
	Size             int64
	Status           Status
	ExtractedText    *string
	CreatedAt        time.Time
}
