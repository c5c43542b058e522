package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessWithoutRecordsIsEmpty(t *testing.T) {
	assert.Equal(t, OutcomeEmpty, Success(nil).Kind)
	assert.Equal(t, OutcomeSuccess, Success([]Record{PlaceholderRecord(1)}).Kind)
}

func TestFailedDefaultsCode(t *testing.T) {
	assert.Equal(t, CodeUnknown, Failed("").Code)
	assert.Equal(t, "failed", Failed(CodeCanceled).Kind.String())
}

func TestErrorRecord(t *testing.T) {
	rec := ErrorRecord(7, CodeDeadlineExceeded)
	assert.Equal(t, "universe_fetch_failed:deadline_exceeded", rec.Error)
	assert.False(t, rec.HasID())
	assert.Nil(t, rec.Link)

	assert.Equal(t, "universe_fetch_failed:unknown", ErrorRecord(7, "").Error)
}
