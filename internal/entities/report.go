package entities

import "fmt"

// RunReport aggregates per-record and per-attachment outcomes of one
// migration run. Individual failures never abort the run; they are counted
// here and surfaced to the operator at the end.
type RunReport struct {
	RecordsProcessed int `json:"records_processed"`
	RecordsSkipped   int `json:"records_skipped"`
	RecordsFailed    int `json:"records_failed"`

	AttachmentsCopied     int `json:"attachments_copied"`
	AttachmentsUpToDate   int `json:"attachments_up_to_date"`
	AttachmentsMissing    int `json:"attachments_missing"`
	AttachmentsConflicted int `json:"attachments_conflicted"`

	Warnings []string `json:"warnings,omitempty"`
}

// Warnf records a per-record or per-attachment problem without failing the run.
func (r *RunReport) Warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
