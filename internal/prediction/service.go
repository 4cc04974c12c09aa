// Package prediction ranks career roles for a skill set against the served model.
package prediction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/career-predictor/internal/features"
	"github.com/jonathan/career-predictor/internal/metrics"
	"github.com/jonathan/career-predictor/internal/training"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is the maximum number of roles returned.
	DefaultTopK = 3
	// DefaultMaxMissing caps the missing skill list of each role.
	DefaultMaxMissing = 5
)

// Informational messages returned alongside an empty result set.
const (
	MessageUntrained    = "Prediction model is not trained yet."
	MessageNoSkills     = "No skills provided."
	MessageUnrecognized = "None of the provided skills are recognized by the model."
	MessageNoMatch      = "No matching roles found."
)

// Result is a single ranked role.
type Result struct {
	Role            string   `json:"role"`
	MatchPercentage float64  `json:"match_percentage"`
	MissingSkills   []string `json:"missing_skills"`
}

// Outcome is the answer to one query. Results is empty, never nil, when no
// prediction is possible, and Message says why.
type Outcome struct {
	Results      []Result `json:"predictions"`
	Message      string   `json:"message,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
	Cached       bool     `json:"-"`
}

// ModelSource yields the currently served model.
type ModelSource interface {
	Current() *training.TrainedModel
}

// Cache stores computed results keyed by model version and recognized skills.
type Cache interface {
	Get(ctx context.Context, key string) ([]Result, bool, error)
	Set(ctx context.Context, key string, results []Result) error
}

// Service answers prediction queries.
type Service struct {
	models     ModelSource
	cache      Cache
	logger     *zap.Logger
	topK       int
	maxMissing int
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLimits overrides the result and missing skill caps.
func WithLimits(topK, maxMissing int) Option {
	return func(s *Service) {
		if topK > 0 {
			s.topK = topK
		}
		if maxMissing > 0 {
			s.maxMissing = maxMissing
		}
	}
}

// NewService creates a prediction service reading models from src.
func NewService(src ModelSource, opts ...Option) *Service {
	s := &Service{
		models:     src,
		logger:     zap.NewNop(),
		topK:       DefaultTopK,
		maxMissing: DefaultMaxMissing,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict ranks up to topK roles for skills. Untrained models, empty input
// and skills unknown to the vocabulary all yield an empty result with an
// informational message rather than an error.
func (s *Service) Predict(ctx context.Context, skills []string) (*Outcome, error) {
	start := time.Now()
	defer func() { metrics.PredictionDuration.Observe(time.Since(start).Seconds()) }()

	model := s.models.Current()
	if model == nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeNoSignal).Inc()
		return emptyOutcome(MessageUntrained, ""), nil
	}
	version := model.Version.String()

	userSkills := features.NormalizeSkills(skills)
	if len(userSkills) == 0 {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeNoSignal).Inc()
		return emptyOutcome(MessageNoSkills, version), nil
	}

	vec := model.Vocabulary.Transform(userSkills)
	if vec.IsZero() {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeNoSignal).Inc()
		return emptyOutcome(MessageUnrecognized, version), nil
	}

	known := model.Vocabulary.Decode(vec)
	key := CacheKey(version, known)
	if cached, ok := s.lookup(ctx, key); ok {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
		return &Outcome{Results: cached, ModelVersion: version, Cached: true}, nil
	}

	results, err := s.rank(model, vec, known)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	s.store(ctx, key, results)

	metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	out := &Outcome{Results: results, ModelVersion: version}
	if len(results) == 0 {
		out.Message = MessageNoMatch
	}
	return out, nil
}

func (s *Service) rank(model *training.TrainedModel, vec features.Vector, known []string) ([]Result, error) {
	roles, err := model.Forest.PredictRoles(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to score roles: %w", err)
	}
	// Stable: equal probabilities keep class order.
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Probability > roles[j].Probability
	})
	if len(roles) > s.topK {
		roles = roles[:s.topK]
	}

	have := make(map[string]struct{}, len(known))
	for _, k := range known {
		have[k] = struct{}{}
	}

	results := make([]Result, 0, len(roles))
	for _, rp := range roles {
		if rp.Probability <= 0 {
			continue
		}
		pct := roundPercentage(rp.Probability)
		if pct <= 0 {
			continue
		}
		results = append(results, Result{
			Role:            rp.Role,
			MatchPercentage: pct,
			MissingSkills:   missingSkills(model.RoleSkills(rp.Role), have, s.maxMissing),
		})
	}
	return results, nil
}

func missingSkills(roleSkills []string, have map[string]struct{}, limit int) []string {
	out := make([]string, 0, limit)
	for _, skill := range roleSkills {
		if len(out) == limit {
			break
		}
		if _, ok := have[skill]; ok {
			continue
		}
		out = append(out, skill)
	}
	return out
}

func (s *Service) lookup(ctx context.Context, key string) ([]Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	results, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Warn("prediction cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues(metrics.OutcomeMiss).Inc()
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues(metrics.OutcomeHit).Inc()
	return results, true
}

func (s *Service) store(ctx context.Context, key string, results []Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, results); err != nil {
		s.logger.Warn("prediction cache write failed", zap.Error(err))
	}
}

// CacheKey derives a cache key from the model version and the recognized
// skills. Unknown skills never influence a result, so they are not part of it.
func CacheKey(version string, known []string) string {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x1f")))
	return version + ":" + hex.EncodeToString(sum[:])
}

func roundPercentage(p float64) float64 {
	return math.Round(p*1000) / 10
}

func emptyOutcome(msg, version string) *Outcome {
	return &Outcome{Results: []Result{}, Message: msg, ModelVersion: version}
}
