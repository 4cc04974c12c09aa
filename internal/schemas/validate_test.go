package schemas

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["skills"],
  "properties": {
    "skills": {"type": "array", "items": {"type": "string"}}
  }
}`

func TestValidateJSONString_Valid(t *testing.T) {
	assert.NoError(t, ValidateJSONString(testSchema, `{"skills": ["go"]}`))
}

func TestValidateJSONString_MissingField(t *testing.T) {
	err := ValidateJSONString(testSchema, `{}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "error should be ValidationError type")
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
	assert.Contains(t, validationErr.Errors[0].Message, "skills")
}

func TestValidateJSONString_WrongType(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"skills": [1]}`)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "skills.0", validationErr.Errors[0].Field)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr), "error should be SchemaLoadError type")
	assert.NotNil(t, loadErr.Unwrap())
}

func TestCompile_BadSchema(t *testing.T) {
	_, err := Compile(`not json`)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestSchema_Validate(t *testing.T) {
	s, err := Compile(testSchema)
	require.NoError(t, err)

	assert.NoError(t, s.Validate([]byte(`{"skills": []}`)))

	err = s.Validate([]byte(`{"skills": "go"}`))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))

	err = s.Validate([]byte(`{"skills": [`))
	require.True(t, errors.As(err, &validationErr), "malformed JSON is a validation error")
	assert.Contains(t, validationErr.Errors[0].Message, "invalid JSON")
}

func TestSchema_ConcurrentValidate(t *testing.T) {
	s, err := Compile(testSchema)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Validate([]byte(`{"skills": ["go", "sql"]}`)))
		}()
	}
	wg.Wait()
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "skills", Message: "is required"},
		{Field: "skills.0", Message: "must be a string"},
	}}
	msg := err.Error()
	assert.Contains(t, msg, "1. skills: is required")
	assert.Contains(t, msg, "2. skills.0: must be a string")
}
