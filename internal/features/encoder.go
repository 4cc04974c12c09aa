// Package features turns free-text skill sets into fixed-width binary feature vectors.
package features

import (
	"sort"
	"strings"
)

// NormalizeSkill trims and lowercases a skill token.
func NormalizeSkill(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// NormalizeSkills normalizes every token and drops the empty ones.
// Order and duplicates are preserved.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if n := NormalizeSkill(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Vector is a binary feature vector indexed by a Vocabulary.
type Vector []float64

// IsZero reports whether no vocabulary skill is set.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Vocabulary is the sorted set of skills observed at training time.
// It must not be mutated after Fit returns.
type Vocabulary struct {
	skills []string
	index  map[string]int
}

// Fit builds a vocabulary from every skill list. Tokens are normalized,
// deduplicated and sorted lexicographically so column order is stable
// across train and predict calls.
func Fit(skillLists [][]string) *Vocabulary {
	seen := make(map[string]struct{})
	for _, list := range skillLists {
		for _, s := range list {
			if n := NormalizeSkill(s); n != "" {
				seen[n] = struct{}{}
			}
		}
	}

	skills := make([]string, 0, len(seen))
	for s := range seen {
		skills = append(skills, s)
	}
	sort.Strings(skills)

	index := make(map[string]int, len(skills))
	for i, s := range skills {
		index[s] = i
	}
	return &Vocabulary{skills: skills, index: index}
}

// Len returns the number of columns.
func (v *Vocabulary) Len() int {
	return len(v.skills)
}

// Skills returns a copy of the vocabulary in column order.
func (v *Vocabulary) Skills() []string {
	out := make([]string, len(v.skills))
	copy(out, v.skills)
	return out
}

// Index returns the column of a skill. The skill is normalized first.
func (v *Vocabulary) Index(skill string) (int, bool) {
	i, ok := v.index[NormalizeSkill(skill)]
	return i, ok
}

// Contains reports whether the skill is known.
func (v *Vocabulary) Contains(skill string) bool {
	_, ok := v.Index(skill)
	return ok
}

// Transform encodes a skill set. Unknown skills are dropped silently.
func (v *Vocabulary) Transform(skills []string) Vector {
	vec := make(Vector, len(v.skills))
	for _, s := range skills {
		if i, ok := v.Index(s); ok {
			vec[i] = 1
		}
	}
	return vec
}

// TransformAll encodes every skill list into a feature matrix.
func (v *Vocabulary) TransformAll(skillLists [][]string) [][]float64 {
	out := make([][]float64, len(skillLists))
	for i, list := range skillLists {
		out[i] = v.Transform(list)
	}
	return out
}

// Decode returns the vocabulary skills set in vec, in column order.
func (v *Vocabulary) Decode(vec Vector) []string {
	var out []string
	for i, x := range vec {
		if i >= len(v.skills) {
			break
		}
		if x != 0 {
			out = append(out, v.skills[i])
		}
	}
	return out
}
