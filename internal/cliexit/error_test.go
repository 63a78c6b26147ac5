package cliexit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodesMatchTaxonomy(t *testing.T) {
	assert.Equal(t, 2, InvalidInput("bad input").ExitCode())
	assert.Equal(t, 3, NoKey("no key for %s", "work").ExitCode())
	assert.Equal(t, 4, SubmitFailed("enqueue failed").ExitCode())
	assert.Equal(t, 124, TimeoutLocal("deadline exceeded").ExitCode())
	assert.Equal(t, 5, IOError("disk full").ExitCode())
}

func TestExitCodeOfWrappedError(t *testing.T) {
	base := NoKey("absent")
	wrapped := fmt.Errorf("submit: %w", base)
	assert.Equal(t, 3, ExitCodeOf(wrapped))
}

func TestExitCodeOfGenericErrorDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, ExitCodeOf(fmt.Errorf("something else")))
}

func TestExitCodeOfNilIsZero(t *testing.T) {
	assert.Equal(t, 0, ExitCodeOf(nil))
}

func TestErrorMessageIncludesUnderlyingError(t *testing.T) {
	err := InvalidInput("command exceeds %d bytes", 1048576)
	assert.Contains(t, err.Error(), "1048576")
}
