package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordDatasetUpload stores an audit row and fills in its ID and timestamp.
func (db *DB) RecordDatasetUpload(ctx context.Context, u *DatasetUpload) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO dataset_uploads (filename, status, row_count, dropped_rows, reason, uploaded_by, job_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.Filename, u.Status, u.Rows, u.DroppedRows, u.Reason, u.UploadedBy, u.JobID,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record dataset upload: %w", err)
	}
	return nil
}

// NewDatasetUpload builds an audit row. Empty reason and nil IDs are stored as NULL.
func NewDatasetUpload(filename, status string, rows, dropped int, reason string, uploadedBy, jobID uuid.UUID) *DatasetUpload {
	u := &DatasetUpload{
		Filename:    filename,
		Status:      status,
		Rows:        rows,
		DroppedRows: dropped,
		Reason:      nullIfEmpty(reason),
	}
	if uploadedBy != uuid.Nil {
		u.UploadedBy = &uploadedBy
	}
	if jobID != uuid.Nil {
		u.JobID = &jobID
	}
	return u
}

// ListDatasetUploads returns the most recent upload attempts.
func (db *DB) ListDatasetUploads(ctx context.Context, limit int) ([]DatasetUpload, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, filename, status, row_count, dropped_rows, reason, uploaded_by, job_id, created_at
		 FROM dataset_uploads
		 ORDER BY created_at DESC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset uploads: %w", err)
	}
	defer rows.Close()

	uploads := []DatasetUpload{}
	for rows.Next() {
		var u DatasetUpload
		if err := rows.Scan(&u.ID, &u.Filename, &u.Status, &u.Rows, &u.DroppedRows, &u.Reason, &u.UploadedBy, &u.JobID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dataset uploads: %w", err)
	}
	return uploads, nil
}
