package security

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestValidateJobTypeName_Valid(t *testing.T) {
	validNames := []string{
		"send-email",
		"processOrder",
		"task_1",
		"MyJob",
		"a",
		"job.subtask",
	}

	for _, name := range validNames {
		err := ValidateJobTypeName(name)
		assert.NoError(t, err, "Expected %q to be valid", name)
	}
}

func TestValidateJobTypeName_Invalid(t *testing.T) {
	invalidNames := []string{
		"",                       // empty
		"123-task",               // starts with number
		"-task",                  // starts with hyphen
		"task with spaces",       // contains spaces
		"task@email",             // contains special char
		"task/subtask",           // contains slash
		strings.Repeat("a", 300), // too long
	}

	for _, name := range invalidNames {
		err := ValidateJobTypeName(name)
		assert.Error(t, err, "Expected %q to be invalid", name)
	}
}

func TestValidateJobTypeName_TooLongSentinel(t *testing.T) {
	err := ValidateJobTypeName(strings.Repeat("a", MaxJobTypeNameLength+1))
	assert.ErrorIs(t, err, core.ErrJobTypeNameTooLong)
}

func TestValidateStoreName(t *testing.T) {
	assert.NoError(t, ValidateStoreName("default"))
	assert.NoError(t, ValidateStoreName("uploads_v2"))

	assert.ErrorIs(t, ValidateStoreName(""), core.ErrInvalidStoreName)
	assert.ErrorIs(t, ValidateStoreName("a:b"), core.ErrInvalidStoreName)
	assert.ErrorIs(t, ValidateStoreName(strings.Repeat("s", MaxStoreNameLength+1)), core.ErrStoreNameTooLong)
}

func TestValidateTopic(t *testing.T) {
	assert.NoError(t, ValidateTopic(""))
	assert.NoError(t, ValidateTopic("upload:42 / photo"))
	assert.ErrorIs(t, ValidateTopic(strings.Repeat("t", MaxTopicLength+1)), core.ErrTopicTooLong)
}

func TestValidateArgs(t *testing.T) {
	small := core.Args{json.RawMessage(`"x"`)}
	assert.NoError(t, ValidateArgs(small))

	big := core.Args{json.RawMessage(`"` + strings.Repeat("x", MaxJobArgsSize) + `"`)}
	assert.ErrorIs(t, ValidateArgs(big), core.ErrJobArgsTooLarge)
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, 0, ClampConcurrency(-5))
	assert.Equal(t, 0, ClampConcurrency(0))
	assert.Equal(t, 1, ClampConcurrency(1))
	assert.Equal(t, 50, ClampConcurrency(50))
	assert.Equal(t, MaxConcurrency, ClampConcurrency(5000))
}
