package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndCodes(t *testing.T) {
	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		base := New(CodeInvalidTransition, "complaint already settled")
		err := fmt.Errorf("resolve: %w", base)
		assert.True(t, HasCode(err, CodeInvalidTransition))
		assert.Equal(t, CodeInvalidTransition, CodeOf(err))
	})

	t.Run("plain errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeSourceUnavailable, "registry unreachable")
		assert.True(t, Is(err, cause))
		assert.Equal(t, "registry unreachable: connection refused", err.Error())
	})
}
