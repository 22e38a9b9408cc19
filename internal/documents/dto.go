package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
// ExtractedText serializes as null until extraction succeeds.
type DocumentResponse struct {
	ID               int64     `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	StoragePath      string    `json:"storagePath"`
	MimeType         string    `json:"mimeType"`
	Size             int64     `json:"size"`
	Status           Status    `json:"status"`
	ExtractedText    *string   `json:"extractedText"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		OriginalFilename: doc.OriginalFilename,
		StoragePath:      doc.StoragePath,
		MimeType:         doc.MimeType,
		Size:             doc.Size,
		Status:           doc.Status,
		ExtractedText:    doc.ExtractedText,
		CreatedAt:        doc.CreatedAt,
	}
}
