package exitcodes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestGetInnerErrorAndExitCode verifies exit codes are recovered from wrapped errors and default to a general error.
func TestGetInnerErrorAndExitCode(t *testing.T) {
	err, code, handled := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.EqualValues(t, ExitCodeSuccess, code)
	assert.False(t, handled)

	inner := errors.New("parse failure")
	err, code, handled = GetInnerErrorAndExitCode(errors.WithMessage(NewErrorWithExitCode(inner, ExitCodeParseError), "analyze"))
	assert.Same(t, inner, err)
	assert.EqualValues(t, ExitCodeParseError, code)
	assert.True(t, handled)

	err, code, handled = GetInnerErrorAndExitCode(inner)
	assert.Same(t, inner, err)
	assert.EqualValues(t, ExitCodeGeneralError, code)
	assert.False(t, handled)
}
