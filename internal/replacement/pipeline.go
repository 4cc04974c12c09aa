// Package replacement validates uploaded datasets and swaps them in for the
// active training file.
package replacement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultMinRows is the smallest dataset accepted for upload.
	DefaultMinRows = 5
	// DefaultMaxBytes caps the upload size.
	DefaultMaxBytes int64 = 32 << 20

	csvExtension = ".csv"
)

// Stage tracks an upload through validation. A pipeline with no upload in
// flight is StageIdle.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageValidating Stage = "validating"
	StageCommitted  Stage = "committed"
	StageRejected   Stage = "rejected"
)

// Retrainer rebuilds the model from the active dataset.
type Retrainer interface {
	Retrain(ctx context.Context) error
}

// Result describes a processed upload.
type Result struct {
	Filename    string `json:"filename"`
	Stage       Stage  `json:"stage"`
	Rows        int    `json:"rows"`
	DroppedRows int    `json:"dropped_rows"`
	Retrained   bool   `json:"retrained"`
}

// Options configures a Pipeline.
type Options struct {
	ActivePath string
	Schema     dataset.Schema
	MinRows    int
	MaxBytes   int64
	Retrainer  Retrainer
	Logger     *zap.Logger
}

// Pipeline stages uploads next to the active dataset and commits them with
// an atomic rename.
type Pipeline struct {
	activePath string
	schema     dataset.Schema
	minRows    int
	maxBytes   int64
	retrainer  Retrainer
	logger     *zap.Logger

	// commitMu serializes commits so two uploads never interleave rename and retrain.
	commitMu sync.Mutex
	inFlight atomic.Int32
}

// New creates a replacement pipeline.
func New(opts Options) *Pipeline {
	if opts.Schema == (dataset.Schema{}) {
		opts.Schema = dataset.CanonicalSchema
	}
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRows
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{
		activePath: opts.ActivePath,
		schema:     opts.Schema,
		minRows:    opts.MinRows,
		maxBytes:   opts.MaxBytes,
		retrainer:  opts.Retrainer,
		logger:     opts.Logger.Named("replacement"),
	}
}

// Stage reports StageValidating while any upload is being staged or
// checked, and StageIdle otherwise.
func (p *Pipeline) Stage() Stage {
	if p.inFlight.Load() > 0 {
		return StageValidating
	}
	return StageIdle
}

// Upload validates body and, when it passes, atomically replaces the active
// dataset. It does not retrain; callers schedule that separately.
// Rejections are returned as *InputRejected.
func (p *Pipeline) Upload(ctx context.Context, filename string, body io.Reader) (*Result, error) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	res := &Result{Filename: filename, Stage: StageValidating}
	log := p.logger.With(zap.String("filename", filename))

	if !strings.EqualFold(filepath.Ext(filename), csvExtension) {
		return p.reject(res, log, &InputRejected{Reason: ReasonBadExtension})
	}

	dir := filepath.Dir(p.activePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	// Same directory as the active file so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".upload-*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove staging file", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(body, p.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return p.reject(res, log, &InputRejected{Reason: reasonProcessing(err), Cause: err})
	}
	if n == 0 {
		return p.reject(res, log, &InputRejected{Reason: ReasonEmptyFile})
	}
	if n > p.maxBytes {
		return p.reject(res, log, &InputRejected{Reason: ReasonTooLarge})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := p.parseStaged(tmpPath)
	if err != nil {
		var schemaErr *dataset.SchemaError
		if errors.As(err, &schemaErr) {
			return p.reject(res, log, &InputRejected{Reason: reasonInvalidFormat(p.schema.Columns()), Cause: err})
		}
		return p.reject(res, log, &InputRejected{Reason: reasonProcessing(err), Cause: err})
	}
	res.Rows = ds.Len()
	res.DroppedRows = len(ds.Issues)

	if ds.Len() < p.minRows {
		return p.reject(res, log, &InputRejected{Reason: reasonTooSmall(p.minRows)})
	}

	p.commitMu.Lock()
	defer p.commitMu.Unlock()
	if err := os.Rename(tmpPath, p.activePath); err != nil {
		return nil, fmt.Errorf("failed to replace active dataset: %w", err)
	}
	res.Stage = StageCommitted
	metrics.DatasetUploadsTotal.WithLabelValues(metrics.OutcomeCommitted).Inc()
	log.Info("dataset replaced",
		zap.String("path", p.activePath),
		zap.Int("rows", res.Rows),
		zap.Int("dropped_rows", res.DroppedRows),
	)
	return res, nil
}

// parseStaged parses the staged copy without wrapping errors in its path;
// the staging location never reaches the uploader.
func (p *Pipeline) parseStaged(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.Parse(f, p.schema)
}

// Replace is Upload followed by a synchronous retrain. A retrain failure
// after the commit is reported as *PartialFailure together with the result.
func (p *Pipeline) Replace(ctx context.Context, filename string, body io.Reader) (*Result, error) {
	if p.retrainer == nil {
		return nil, errors.New("replacement pipeline has no retrainer")
	}

	res, err := p.Upload(ctx, filename, body)
	if err != nil {
		return res, err
	}

	if err := p.retrainer.Retrain(ctx); err != nil {
		metrics.DatasetUploadsTotal.WithLabelValues(metrics.OutcomePartial).Inc()
		p.logger.Error("retrain after dataset replacement failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return res, &PartialFailure{Rows: res.Rows, Cause: err}
	}
	res.Retrained = true
	return res, nil
}

func (p *Pipeline) reject(res *Result, log *zap.Logger, rej *InputRejected) (*Result, error) {
	res.Stage = StageRejected
	metrics.DatasetUploadsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	if rej.Cause != nil {
		log.Warn("dataset upload rejected", zap.String("reason", rej.Reason), zap.Error(rej.Cause))
	} else {
		log.Info("dataset upload rejected", zap.String("reason", rej.Reason))
	}
	return res, rej
}
