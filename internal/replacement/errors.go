package replacement

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Rejection reasons surfaced verbatim to the uploader.
const (
	ReasonBadExtension = "Invalid file type. Please upload a CSV file."
	ReasonTooLarge     = "File too large."
	ReasonEmptyFile    = "Uploaded file is empty."
)

func reasonInvalidFormat(columns []string) string {
	return "Invalid CSV format. Required columns: " + strings.Join(columns, ", ")
}

func reasonTooSmall(minRows int) string {
	return fmt.Sprintf("Dataset too small. Minimum %d rows required.", minRows)
}

// reasonProcessing drops any file path from err; the full error stays in
// InputRejected.Cause for logs.
func reasonProcessing(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return fmt.Sprintf("Error processing file: %v", err)
}

// InputRejected is a user-correctable upload failure. The active dataset is
// untouched and the staged file has been removed.
type InputRejected struct {
	Reason string
	Cause  error
}

func (e *InputRejected) Error() string {
	return e.Reason
}

func (e *InputRejected) Unwrap() error {
	return e.Cause
}

// PartialFailure means the new dataset was committed but retraining it
// failed. The previously published model, if any, keeps serving.
type PartialFailure struct {
	Rows  int
	Cause error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("dataset replaced (%d rows) but retraining failed: %v", e.Rows, e.Cause)
}

func (e *PartialFailure) Unwrap() error {
	return e.Cause
}
