package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Upload audit statuses.
const (
	UploadCommitted = "committed"
	UploadRejected  = "rejected"
	UploadFailed    = "failed"
)

// DefaultListLimit bounds list queries when the caller passes no limit.
const DefaultListLimit = 50

// MaxListLimit caps any list query.
const MaxListLimit = 500

// Prediction is one stored role match for a user. A user has at most one
// row per role; repeated predictions update it in place.
type Prediction struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Role            string      `json:"role"`
	MatchPercentage float64     `json:"match_percentage"`
	MissingSkills   StringArray `json:"missing_skills"`
	ModelVersion    *uuid.UUID  `json:"model_version,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PredictionInput is the writable part of a Prediction.
type PredictionInput struct {
	Role            string
	MatchPercentage float64
	MissingSkills   []string
}

// DatasetUpload is an audit record for one upload attempt.
type DatasetUpload struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	Rows        int        `json:"rows"`
	DroppedRows int        `json:"dropped_rows"`
	Reason      *string    `json:"reason,omitempty"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	JobID       *uuid.UUID `json:"job_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StringArray is a []string stored as a JSONB array.
type StringArray []string

// Scan implements the Scanner interface for StringArray
func (a *StringArray) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", src)
	}
	return json.Unmarshal(raw, a)
}

// Value implements the Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
