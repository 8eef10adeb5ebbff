package models

// UploadResponse is returned after an upload is accepted
type UploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// ConvertRequest is the body of POST /api/convert.
// Options is free-form; the pipeline parses it into a typed option.
type ConvertRequest struct {
	JobID        string         `json:"job_id" validate:"required"`
	TargetFormat string         `json:"target_format" validate:"required"`
	Options      map[string]any `json:"options,omitempty"`
}

type ConvertResponse struct {
	JobID            string `json:"job_id"`
	DownloadFilename string `json:"download_filename"`
	Size             int    `json:"size"`
}

// ErrorResponse carries the client-facing message and the stable reason
type ErrorResponse struct {
	Detail string `json:"detail"`
	Reason string `json:"reason,omitempty"`
}

// ValidationErrorResponse lists request fields that failed validation
type ValidationErrorResponse struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}
