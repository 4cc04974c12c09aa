package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertPredictions stores a user's latest matches. Existing rows for the
// same role are updated in place; all rows are written in one transaction.
func (db *DB) UpsertPredictions(ctx context.Context, userID uuid.UUID, modelVersion uuid.UUID, inputs []PredictionInput) ([]Prediction, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version *uuid.UUID
	if modelVersion != uuid.Nil {
		version = &modelVersion
	}

	out := make([]Prediction, 0, len(inputs))
	for _, in := range inputs {
		var p Prediction
		err := tx.QueryRow(ctx,
			`INSERT INTO predictions (user_id, role, match_percentage, missing_skills, model_version)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, role) DO UPDATE SET
			     match_percentage = EXCLUDED.match_percentage,
			     missing_skills = EXCLUDED.missing_skills,
			     model_version = EXCLUDED.model_version,
			     updated_at = NOW()
			 RETURNING id, user_id, role, match_percentage, missing_skills, model_version, created_at, updated_at`,
			userID, in.Role, in.MatchPercentage, StringArray(in.MissingSkills), version,
		).Scan(&p.ID, &p.UserID, &p.Role, &p.MatchPercentage, &p.MissingSkills, &p.ModelVersion, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert prediction for role %q: %w", in.Role, err)
		}
		out = append(out, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit predictions: %w", err)
	}
	return out, nil
}

// ListPredictions returns a user's stored matches, most recently updated first.
func (db *DB) ListPredictions(ctx context.Context, userID uuid.UUID, limit int) ([]Prediction, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, role, match_percentage, missing_skills, model_version, created_at, updated_at
		 FROM predictions
		 WHERE user_id = $1
		 ORDER BY updated_at DESC, match_percentage DESC
		 LIMIT $2`,
		userID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	predictions := []Prediction{}
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Role, &p.MatchPercentage, &p.MissingSkills, &p.ModelVersion, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return predictions, nil
}

// DeletePrediction removes one of the user's rows. Rows owned by other users
// are reported as ErrNotFound.
func (db *DB) DeletePrediction(ctx context.Context, userID, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM predictions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction %s: %w", id, ErrNotFound)
	}
	return nil
}
