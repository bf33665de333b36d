package phase

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContractViolation(t *testing.T) {
	err := contractViolation(Dispense, "a block dispensing items")

	assert.True(t, IsContractViolation(err))
	assert.ErrorIs(t, err, ErrMissingSource)
	assert.Contains(t, err.Error(), "could not find a block dispensing items for Dispense")
	assert.True(t, IsContractViolation(ErrMissingSource))
	assert.False(t, IsContractViolation(errors.New("other")))
}

func TestLogErrorIncludesCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logError(logger, "unwind failed", contractViolation(BlockDecay, "a decaying block snapshot"))
	assert.Contains(t, buf.String(), "code=contract_violation")

	buf.Reset()
	logError(logger, "plain", errors.New("boom"))
	assert.Contains(t, buf.String(), "error=boom")
}
