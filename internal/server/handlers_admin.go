package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/db"
	"github.com/jonathan/career-predictor/internal/replacement"
	"github.com/jonathan/career-predictor/internal/server/middleware"
	"go.uber.org/zap"
)

// uploadFormField is the multipart field carrying the CSV.
const uploadFormField = "file"

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// handleModelStatus reports the training state of the served model.
func (s *Server) handleModelStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.model.Status())
}

// handleUploadDataset replaces the active dataset and schedules a retrain.
func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, replacement.ReasonTooLarge)
			return
		}
		s.writeError(w, r, &ErrValidation{Field: uploadFormField, Message: "expected a multipart/form-data upload"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: uploadFormField, Message: "no file uploaded"})
		return
	}
	defer file.Close()

	adminID, _ := middleware.GetUserID(r)
	log := s.logger.With(zap.String("filename", header.Filename), zap.String("admin_id", adminID.String()))

	res, err := s.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		var rejected *replacement.InputRejected
		if errors.As(err, &rejected) {
			s.auditUpload(r, header.Filename, db.UploadRejected, res, rejected.Reason, adminID, uuid.Nil)
		} else {
			s.auditUpload(r, header.Filename, db.UploadFailed, res, err.Error(), adminID, uuid.Nil)
		}
		s.writeError(w, r, err)
		return
	}

	job, err := s.jobs.Enqueue("dataset upload: "+header.Filename, true)
	if err != nil {
		// The new file is live but nothing will retrain it until the next request.
		s.auditUpload(r, header.Filename, db.UploadCommitted, res, "retrain not scheduled: "+err.Error(), adminID, uuid.Nil)
		log.Error("dataset committed but retrain could not be scheduled", zap.Error(err))
		s.writeError(w, r, &replacement.PartialFailure{Rows: res.Rows, Cause: err})
		return
	}

	s.auditUpload(r, header.Filename, db.UploadCommitted, res, "", adminID, job.ID)
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"message": "Dataset uploaded. Retraining scheduled.",
		"upload":  res,
		"job":     job,
	})
}

// auditUpload records the attempt when a store is configured. Failures are logged only.
func (s *Server) auditUpload(r *http.Request, filename, status string, res *replacement.Result, reason string, adminID, jobID uuid.UUID) {
	if s.store == nil {
		return
	}
	var rows, dropped int
	if res != nil {
		rows, dropped = res.Rows, res.DroppedRows
	}
	u := db.NewDatasetUpload(filename, status, rows, dropped, reason, adminID, jobID)
	if err := s.store.RecordDatasetUpload(r.Context(), u); err != nil {
		s.logger.Error("failed to record dataset upload", zap.String("filename", filename), zap.Error(err))
	}
}

// handleListUploads returns recent dataset upload attempts.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, &ErrNotConfigured{Feature: "upload audit"})
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	uploads, err := s.store.ListDatasetUploads(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"uploads": uploads,
		"count":   len(uploads),
	})
}

// handleRetrain queues a retrain against the active dataset.
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Enqueue("manual retrain", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{"job": job})
}

// handleGetJob reports a retrain job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}
	job, err := s.jobs.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"job": job})
}
