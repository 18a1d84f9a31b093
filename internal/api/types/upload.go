package types

import "time"

type DocumentUploadResponse struct {
	DocumentID  string    `json:"documentId"`
	Filename    string    `json:"filename"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	SHA256      string    `json:"sha256"`
	VerifiedBy  string    `json:"verifiedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
