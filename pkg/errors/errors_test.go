package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	err := New("BRAIN_NOT_FOUND", "Brain not found", http.StatusNotFound)
	require.Equal(t, "Brain not found", err.Error())

	withInternal := err.WithInternal(errors.New("row missing"))
	require.Equal(t, "Brain not found: row missing", withInternal.Error())
	require.Equal(t, err.Code, withInternal.Code)
}

func TestWrapKeepsInternalError(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, "failed to persist grant")

	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, cause)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrConflict)
	require.Equal(t, ErrConflict.Code, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	require.Equal(t, ErrNotFound.Code, FromError(wrapped).Code)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.ErrorContains(t, generic, "boom")
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("slug already used in workspace")
	require.Equal(t, ErrConflict.Code, err.Code)
	require.Equal(t, http.StatusConflict, err.StatusCode)
	require.Equal(t, "slug already used in workspace", err.Message)
}
