// Package training fits the career model from the active dataset and
// publishes it through a process-wide registry.
package training

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/features"
)

// TrainedModel bundles everything a prediction needs. It is immutable once
// built and is replaced wholesale on retrain.
type TrainedModel struct {
	Version    uuid.UUID
	TrainedAt  time.Time
	Vocabulary *features.Vocabulary
	Forest     *classifier.Forest
	Dataset    *dataset.Dataset

	roleSkills map[string][]string
}

func newTrainedModel(vocab *features.Vocabulary, forest *classifier.Forest, ds *dataset.Dataset, now time.Time) *TrainedModel {
	return &TrainedModel{
		Version:    uuid.New(),
		TrainedAt:  now,
		Vocabulary: vocab,
		Forest:     forest,
		Dataset:    ds,
		roleSkills: indexRoleSkills(ds),
	}
}

// RoleSkills returns every skill seen on rows labeled role, ordered by how
// many of those rows list it (descending), then lexicographically.
func (m *TrainedModel) RoleSkills(role string) []string {
	return m.roleSkills[role]
}

func indexRoleSkills(ds *dataset.Dataset) map[string][]string {
	freq := make(map[string]map[string]int)
	for _, row := range ds.Rows {
		counts, ok := freq[row.Role]
		if !ok {
			counts = make(map[string]int)
			freq[row.Role] = counts
		}
		for _, s := range row.Skills {
			counts[s]++
		}
	}

	out := make(map[string][]string, len(freq))
	for role, counts := range freq {
		skills := make([]string, 0, len(counts))
		for s := range counts {
			skills = append(skills, s)
		}
		sort.Slice(skills, func(i, j int) bool {
			if counts[skills[i]] != counts[skills[j]] {
				return counts[skills[i]] > counts[skills[j]]
			}
			return skills[i] < skills[j]
		})
		out[role] = skills
	}
	return out
}

// Registry holds the currently served model. Readers never observe a
// partially built model: publication is a single pointer swap.
type Registry struct {
	current atomic.Pointer[TrainedModel]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the served model, or nil before the first successful training.
func (r *Registry) Current() *TrainedModel {
	return r.current.Load()
}

// Publish replaces the served model and returns the previous one.
func (r *Registry) Publish(m *TrainedModel) *TrainedModel {
	return r.current.Swap(m)
}
