package model

// MaxImportErrors caps BatchImportResult.Errors.
const MaxImportErrors = 200

// BatchImportResult aggregates the outcome of an import run. Errors holds a
// sample of failure messages for operators, never more than MaxImportErrors.
type BatchImportResult struct {
	SuccessCount int      `json:"success"`
	FailedCount  int      `json:"failed"`
	SkippedCount int      `json:"skipped"`
	Errors       []string `json:"errors"`
}

// NewBatchImportResult returns an empty result with a non-nil error log.
func NewBatchImportResult() BatchImportResult {
	return BatchImportResult{Errors: []string{}}
}

// Total is the number of identifiers accounted for.
func (r *BatchImportResult) Total() int {
	return r.SuccessCount + r.FailedCount + r.SkippedCount
}

// AddError appends msg unless the log is full. It reports whether msg was kept.
func (r *BatchImportResult) AddError(msg string) bool {
	if len(r.Errors) >= MaxImportErrors {
		return false
	}
	r.Errors = append(r.Errors, msg)
	return true
}

// Fail counts one failure and logs msg if there is room.
func (r *BatchImportResult) Fail(msg string) {
	r.FailedCount++
	r.AddError(msg)
}

// Merge folds other into r, respecting the error cap.
func (r *BatchImportResult) Merge(other BatchImportResult) {
	r.SuccessCount += other.SuccessCount
	r.FailedCount += other.FailedCount
	r.SkippedCount += other.SkippedCount
	for _, e := range other.Errors {
		if !r.AddError(e) {
			break
		}
	}
}

// Counts returns a copy without the error log.
func (r *BatchImportResult) Counts() BatchImportResult {
	return BatchImportResult{
		SuccessCount: r.SuccessCount,
		FailedCount:  r.FailedCount,
		SkippedCount: r.SkippedCount,
	}
}
