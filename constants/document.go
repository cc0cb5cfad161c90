package constants

// DocumentType classifies the clinical document a job was created from.
type DocumentType string

const (
	DocTypeDischargeSummary DocumentType = "discharge_summary"
	DocTypeDiagnosticReport DocumentType = "diagnostic_report"
	DocTypeUnknown          DocumentType = "unknown"
)

// Valid reports whether dt is one of the known document types.
func (dt DocumentType) Valid() bool {
	switch dt {
	case DocTypeDischargeSummary, DocTypeDiagnosticReport, DocTypeUnknown:
		return true
	}
	return false
}
