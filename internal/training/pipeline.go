package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/features"
	"github.com/jonathan/career-predictor/internal/metrics"
	"go.uber.org/zap"
)

// State is the training lifecycle state.
type State string

const (
	StateUntrained State = "untrained"
	StateTraining  State = "training"
	StateTrained   State = "trained"
	StateFailed    State = "failed"
)

// Status is a snapshot of the pipeline for operators.
type Status struct {
	State          State      `json:"state"`
	ModelVersion   *uuid.UUID `json:"model_version,omitempty"`
	TrainedAt      *time.Time `json:"trained_at,omitempty"`
	Rows           int        `json:"rows"`
	DroppedRows    int        `json:"dropped_rows"`
	Roles          []string   `json:"roles,omitempty"`
	VocabularySize int        `json:"vocabulary_size"`
	LastError      string     `json:"last_error,omitempty"`
}

// Options configures a Pipeline.
type Options struct {
	DatasetPath string
	Schema      dataset.Schema
	Forest      classifier.Options
	Logger      *zap.Logger
	Now         func() time.Time
}

// Pipeline loads the dataset, fits encoder and classifier, and publishes the
// result to a Registry. Retrains are serialized.
type Pipeline struct {
	path     string
	schema   dataset.Schema
	forest   classifier.Options
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time

	trainMu sync.Mutex

	mu        sync.RWMutex
	state     State
	lastError error
}

// NewPipeline creates an untrained pipeline bound to registry.
func NewPipeline(registry *Registry, opts Options) *Pipeline {
	if opts.Schema == (dataset.Schema{}) {
		opts.Schema = dataset.CanonicalSchema
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		path:     opts.DatasetPath,
		schema:   opts.Schema,
		forest:   opts.Forest,
		registry: registry,
		logger:   opts.Logger.Named("training"),
		now:      opts.Now,
		state:    StateUntrained,
	}
}

// Bootstrap performs the startup training attempt. A missing dataset file
// leaves the pipeline untrained without error.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	err := p.Retrain(ctx)
	if errors.Is(err, dataset.ErrNotFound) {
		p.logger.Warn("dataset not found, skipping training", zap.String("path", p.path))
		return nil
	}
	return err
}

// Retrain loads the dataset and fits a fresh model. On success the new model
// is published atomically. On failure the previously published model, if
// any, keeps serving.
func (p *Pipeline) Retrain(ctx context.Context) error {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	prev := p.setState(StateTraining, nil)
	start := p.now()

	model, err := p.fit()
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			p.setState(prev, nil)
			metrics.RetrainsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			return err
		}
		p.setState(StateFailed, err)
		metrics.RetrainsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		p.logger.Error("retrain failed", zap.String("path", p.path), zap.Error(err))
		return err
	}

	p.registry.Publish(model)
	p.setState(StateTrained, nil)

	elapsed := p.now().Sub(start)
	metrics.RetrainsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	metrics.RetrainDuration.Observe(elapsed.Seconds())
	metrics.VocabularySize.Set(float64(model.Vocabulary.Len()))
	metrics.KnownRoles.Set(float64(len(model.Forest.Classes())))

	p.logger.Info("model published",
		zap.String("version", model.Version.String()),
		zap.Int("rows", model.Dataset.Len()),
		zap.Int("dropped_rows", len(model.Dataset.Issues)),
		zap.Int("vocabulary", model.Vocabulary.Len()),
		zap.Strings("roles", model.Forest.Classes()),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (p *Pipeline) fit() (*TrainedModel, error) {
	ds, err := dataset.Load(p.path, p.schema)
	if err != nil {
		return nil, err
	}
	for _, issue := range ds.Issues {
		p.logger.Debug("dropped dataset row", zap.Int("line", issue.Line), zap.String("reason", issue.Reason))
	}

	return Fit(ds, p.forest, p.now())
}

// Fit builds a TrainedModel from an in-memory dataset without publishing it.
func Fit(ds *dataset.Dataset, opts classifier.Options, now time.Time) (*TrainedModel, error) {
	skillLists := ds.SkillLists()
	vocab := features.Fit(skillLists)

	X := vocab.TransformAll(skillLists)
	forest, err := classifier.Fit(X, ds.Roles(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fit role classifier: %w", err)
	}
	return newTrainedModel(vocab, forest, ds, now), nil
}

func (p *Pipeline) setState(s State, err error) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.state
	p.state = s
	if s != StateTraining {
		p.lastError = err
	}
	return prev
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Registry returns the registry the pipeline publishes to.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// DatasetPath returns the active dataset location.
func (p *Pipeline) DatasetPath() string {
	return p.path
}

// Status reports the lifecycle state alongside the served model.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	st := Status{State: p.state}
	if p.lastError != nil {
		st.LastError = p.lastError.Error()
	}
	p.mu.RUnlock()

	if m := p.registry.Current(); m != nil {
		version := m.Version
		trainedAt := m.TrainedAt
		st.ModelVersion = &version
		st.TrainedAt = &trainedAt
		st.Rows = m.Dataset.Len()
		st.DroppedRows = len(m.Dataset.Issues)
		st.Roles = m.Forest.Classes()
		st.VocabularySize = m.Vocabulary.Len()
	}
	return st
}
