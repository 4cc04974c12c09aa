package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/training"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	model *training.TrainedModel
}

func (s staticSource) Current() *training.TrainedModel { return s.model }

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]Result
	getErr  error
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]Result)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.entries[key]
	return r, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, results []Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = results
	return nil
}

func analystModel(t *testing.T) *training.TrainedModel {
	t.Helper()
	ds := &dataset.Dataset{Rows: []dataset.Row{
		{Line: 2, Skills: []string{"python", "sql"}, Role: "Data Analyst"},
		{Line: 3, Skills: []string{"java", "spring"}, Role: "Backend Engineer"},
		{Line: 4, Skills: []string{"python", "pandas"}, Role: "Data Analyst"},
	}}
	m, err := training.Fit(ds, classifier.DefaultOptions(), time.Unix(1700000000, 0))
	require.NoError(t, err)
	return m
}

func multiRoleModel(t *testing.T) *training.TrainedModel {
	t.Helper()
	ds := &dataset.Dataset{Rows: []dataset.Row{
		{Skills: []string{"python", "sql", "excel"}, Role: "Data Analyst"},
		{Skills: []string{"python", "pandas", "tableau"}, Role: "Data Analyst"},
		{Skills: []string{"java", "spring", "sql"}, Role: "Backend Engineer"},
		{Skills: []string{"go", "postgres", "docker"}, Role: "Backend Engineer"},
		{Skills: []string{"kubernetes", "docker", "terraform"}, Role: "DevOps Engineer"},
		{Skills: []string{"aws", "terraform", "linux"}, Role: "DevOps Engineer"},
		{Skills: []string{"python", "tensorflow", "pytorch"}, Role: "ML Engineer"},
		{Skills: []string{"python", "sklearn", "pandas", "docker"}, Role: "ML Engineer"},
		{Skills: []string{"figma", "css", "html"}, Role: "Frontend Developer"},
		{Skills: []string{"react", "javascript", "css"}, Role: "Frontend Developer"},
	}}
	m, err := training.Fit(ds, classifier.DefaultOptions(), time.Unix(1700000000, 0))
	require.NoError(t, err)
	return m
}

func TestPredict_RanksRoleAndListsMissingSkills(t *testing.T) {
	svc := NewService(staticSource{model: analystModel(t)})

	out, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	top := out.Results[0]
	assert.Equal(t, "Data Analyst", top.Role)
	assert.Greater(t, top.MatchPercentage, 0.0)
	assert.Subset(t, []string{"sql", "pandas"}, top.MissingSkills)
	assert.NotContains(t, top.MissingSkills, "python")
	// pandas and sql each appear on one row; lexicographic order breaks the tie.
	assert.Equal(t, []string{"pandas", "sql"}, top.MissingSkills)
}

func TestPredict_EmptySkillSetReturnsMessage(t *testing.T) {
	svc := NewService(staticSource{model: analystModel(t)})

	for _, input := range [][]string{nil, {}, {"  ", ""}} {
		out, err := svc.Predict(context.Background(), input)
		require.NoError(t, err)
		assert.NotNil(t, out.Results)
		assert.Empty(t, out.Results)
		assert.Equal(t, MessageNoSkills, out.Message)
	}
}

func TestPredict_Untrained(t *testing.T) {
	svc := NewService(staticSource{})

	out, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.Equal(t, MessageUntrained, out.Message)
	assert.Empty(t, out.ModelVersion)
}

func TestPredict_NoVocabularyOverlap(t *testing.T) {
	svc := NewService(staticSource{model: multiRoleModel(t)})

	for _, input := range [][]string{{"cobol"}, {"fortran", "basic", "pascal"}} {
		out, err := svc.Predict(context.Background(), input)
		require.NoError(t, err)
		assert.Empty(t, out.Results)
		assert.Equal(t, MessageUnrecognized, out.Message)
	}
}

func TestPredict_UnknownSkillsIgnored(t *testing.T) {
	svc := NewService(staticSource{model: analystModel(t)})

	a, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	b, err := svc.Predict(context.Background(), []string{"python", "cobol", " COBOL "})
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
}

func TestPredict_Bounds(t *testing.T) {
	svc := NewService(staticSource{model: multiRoleModel(t)})

	queries := [][]string{
		{"python"},
		{"docker"},
		{"css", "python", "terraform", "java"},
		{"python", "sql", "excel", "pandas", "tableau"},
	}
	for _, q := range queries {
		out, err := svc.Predict(context.Background(), q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out.Results), DefaultTopK)
		for i, r := range out.Results {
			assert.Greater(t, r.MatchPercentage, 0.0)
			assert.LessOrEqual(t, r.MatchPercentage, 100.0)
			assert.LessOrEqual(t, len(r.MissingSkills), DefaultMaxMissing)
			if i > 0 {
				assert.GreaterOrEqual(t, out.Results[i-1].MatchPercentage, r.MatchPercentage)
			}
			for _, m := range r.MissingSkills {
				assert.NotContains(t, q, m)
			}
		}
	}
}

func TestPredict_Idempotent(t *testing.T) {
	svc := NewService(staticSource{model: multiRoleModel(t)})
	q := []string{"python", "docker"}

	a, err := svc.Predict(context.Background(), q)
	require.NoError(t, err)
	b, err := svc.Predict(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredict_RetrainWithSameDataIsDeterministic(t *testing.T) {
	a, err := NewService(staticSource{model: multiRoleModel(t)}).Predict(context.Background(), []string{"sql", "python"})
	require.NoError(t, err)
	b, err := NewService(staticSource{model: multiRoleModel(t)}).Predict(context.Background(), []string{"sql", "python"})
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
}

func TestPredict_UsesCache(t *testing.T) {
	model := analystModel(t)
	cache := newMemoryCache()
	svc := NewService(staticSource{model: model}, WithCache(cache))

	first, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Predict(context.Background(), []string{"Python", "unknown-skill"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 2, cache.gets)
}

func TestPredict_CacheErrorFallsBackToModel(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	svc := NewService(staticSource{model: analystModel(t)}, WithCache(cache))

	out, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.NotEmpty(t, out.Results)
}

func TestPredict_WithLimits(t *testing.T) {
	svc := NewService(staticSource{model: multiRoleModel(t)}, WithLimits(1, 2))

	out, err := svc.Predict(context.Background(), []string{"python"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.LessOrEqual(t, len(out.Results[0].MissingSkills), 2)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("v1", []string{"sql", "python"})
	b := CacheKey("v1", []string{"python", "sql"})
	c := CacheKey("v2", []string{"python", "sql"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMissingSkills(t *testing.T) {
	have := map[string]struct{}{"python": {}}
	got := missingSkills([]string{"python", "pandas", "sql", "excel"}, have, 2)
	assert.Equal(t, []string{"pandas", "sql"}, got)
}

func TestRoundPercentage(t *testing.T) {
	assert.Equal(t, 66.7, roundPercentage(2.0/3.0))
	assert.Equal(t, 100.0, roundPercentage(1))
	assert.Equal(t, 0.0, roundPercentage(0.0004))
}
