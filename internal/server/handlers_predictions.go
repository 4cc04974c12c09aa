package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/db"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/jonathan/career-predictor/internal/server/middleware"
	"go.uber.org/zap"
)

// maxPredictBodyBytes bounds the JSON body of a prediction request.
const maxPredictBodyBytes = 64 << 10

type predictRequest struct {
	Skills []string `json:"skills" validate:"max=200,dive,max=100"`
}

// handlePredict ranks roles for the posted skills and records the caller's history.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPredictBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err := s.predictSchema.Validate(body); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req predictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, &ErrValidation{Field: "skills", Message: err.Error()})
		return
	}

	outcome, err := s.predictor.Predict(r.Context(), req.Skills)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.saveHistory(r, userID, outcome)
	s.checkResponse(outcome)
	s.jsonResponse(w, http.StatusOK, outcome)
}

// checkResponse logs a prediction response that drifts from the response
// schema. The response is still sent.
func (s *Server) checkResponse(outcome *prediction.Outcome) {
	if s.responseSchema == nil {
		return
	}
	doc, err := json.Marshal(outcome)
	if err == nil {
		err = s.responseSchema.Validate(doc)
	}
	if err != nil {
		s.logger.Warn("prediction response does not match schema", zap.Error(err))
	}
}

// saveHistory is best effort: a storage failure is logged and the caller
// still gets the predictions.
func (s *Server) saveHistory(r *http.Request, userID uuid.UUID, outcome *prediction.Outcome) {
	if s.store == nil || len(outcome.Results) == 0 {
		return
	}

	inputs := make([]db.PredictionInput, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		inputs = append(inputs, db.PredictionInput{
			Role:            res.Role,
			MatchPercentage: res.MatchPercentage,
			MissingSkills:   res.MissingSkills,
		})
	}
	version, _ := uuid.Parse(outcome.ModelVersion)

	if _, err := s.store.UpsertPredictions(r.Context(), userID, version, inputs); err != nil {
		s.logger.Error("failed to save prediction history",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// handleListPredictions returns the caller's stored predictions.
func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.store == nil {
		s.writeError(w, r, &ErrNotConfigured{Feature: "prediction history"})
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	predictions, err := s.store.ListPredictions(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"predictions": predictions,
		"count":       len(predictions),
	})
}

// handleDeletePrediction removes one of the caller's stored predictions.
func (s *Server) handleDeletePrediction(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.store == nil {
		s.writeError(w, r, &ErrNotConfigured{Feature: "prediction history"})
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	if err := s.store.DeletePrediction(r.Context(), userID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
	}
	return limit, nil
}
