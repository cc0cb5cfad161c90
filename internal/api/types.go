package api

import (
	"encoding/json"

	"github.com/careform/medextract/constants"
)

// Job is one submitted document's processing unit as reported by the
// backend. The backend is the sole mutator; clients only observe.
type Job struct {
	JobID           string                  `json:"job_id"`
	Status          constants.JobStatus     `json:"status"`
	Filename        string                  `json:"filename"`
	DocumentType    *constants.DocumentType `json:"document_type"`
	ErrorMessage    *string                 `json:"error_message"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
	ExcelExportPath *string                 `json:"excel_export_path"`
}

// ConfidenceDetail is per-field extraction confidence metadata. It is
// read-only from the client's perspective.
type ConfidenceDetail struct {
	Score float64 `json:"score"`
	Label string  `json:"label"` // high | medium | low
	Color string  `json:"color"` // green | amber | red
}

// ExtractedDocument is the structured extraction for a job. Sections are
// kept as raw JSON so untouched sections survive edit round-trips
// byte-identical and unknown keys are preserved.
type ExtractedDocument struct {
	JobID        string                      `json:"job_id"`
	Status       constants.JobStatus         `json:"status"`
	DocumentType *constants.DocumentType     `json:"document_type"`
	Data         map[string]json.RawMessage  `json:"extracted_data"`
	Confidence   map[string]ConfidenceDetail `json:"confidence"`
}

// JobText is the raw pipeline text for a job.
type JobText struct {
	JobID     string              `json:"job_id"`
	Status    constants.JobStatus `json:"status"`
	RawText   *string             `json:"raw_text"`
	OCRMethod *string             `json:"ocr_method"`
	PageCount *int                `json:"page_count"`
}

// FHIRBundle wraps the generated bundle for a job. The bundle itself is
// opaque to this client.
type FHIRBundle struct {
	JobID  string          `json:"job_id"`
	Bundle json.RawMessage `json:"fhir_bundle"`
}

// ValidationReport is the rule-engine verdict on the current bundle.
// It is stale after every regeneration and must be refetched.
type ValidationReport struct {
	JobID         string   `json:"job_id"`
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	ResourceCount int      `json:"resource_count"`
}

// JobListPage is one window of job summaries. Pages are 1-based.
type JobListPage struct {
	Jobs       []Job `json:"jobs"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// ListParams filters and pages a job list request. A zero DocumentType
// means all types.
type ListParams struct {
	DocumentType constants.DocumentType
	Page         int
	PageSize     int
}
