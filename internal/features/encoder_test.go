package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{"  Python ", "", "SQL", "   ", "python"})
	assert.Equal(t, []string{"python", "sql", "python"}, got)
}

func TestFit_SortsAndDeduplicates(t *testing.T) {
	vocab := Fit([][]string{
		{"SQL", "python"},
		{" Java", "spring"},
		{"python", "Pandas"},
	})

	require.Equal(t, 5, vocab.Len())
	assert.Equal(t, []string{"java", "pandas", "python", "spring", "sql"}, vocab.Skills())
}

func TestFit_StableAcrossInputOrder(t *testing.T) {
	a := Fit([][]string{{"go", "rust"}, {"c"}})
	b := Fit([][]string{{"c"}, {"rust", "go"}})
	assert.Equal(t, a.Skills(), b.Skills())
}

func TestTransform_DropsUnknownSkills(t *testing.T) {
	vocab := Fit([][]string{{"python", "sql"}})

	vec := vocab.Transform([]string{"Python", "cobol"})
	assert.Equal(t, Vector{1, 0}, vec)
	assert.False(t, vec.IsZero())

	none := vocab.Transform([]string{"cobol", "fortran"})
	assert.True(t, none.IsZero())
}

func TestTransform_EmptyInput(t *testing.T) {
	vocab := Fit([][]string{{"python"}})
	assert.True(t, vocab.Transform(nil).IsZero())
}

func TestDecode_RoundTrip(t *testing.T) {
	vocab := Fit([][]string{{"python", "sql"}, {"java", "spring"}})

	input := []string{"spring", "haskell", "python", "python"}
	decoded := vocab.Decode(vocab.Transform(input))

	// Known skills persist in column order, unknown ones vanish.
	assert.Equal(t, []string{"python", "spring"}, decoded)
}

func TestIndexAndContains(t *testing.T) {
	vocab := Fit([][]string{{"b", "a"}})

	i, ok := vocab.Index(" B ")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.True(t, vocab.Contains("A"))
	assert.False(t, vocab.Contains("c"))
}

func TestSkills_ReturnsCopy(t *testing.T) {
	vocab := Fit([][]string{{"a"}})
	skills := vocab.Skills()
	skills[0] = "mutated"
	assert.Equal(t, []string{"a"}, vocab.Skills())
}
