package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("save pages: %w", &ConflictError{Resource: "pages", ExpectedVersion: "abc", Message: "sha mismatch"})

	assert.True(t, IsConflict(err))
	assert.False(t, IsTransport(err))
	ce, ok := AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "pages", ce.Resource)
	assert.Contains(t, err.Error(), "sha mismatch")
}

func TestConflictErrorMentionsAttempts(t *testing.T) {
	err := &ConflictError{Resource: "content", ExpectedVersion: "v1", Attempts: 2}
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestTransportErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "GET /content", Err: cause}

	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	withStatus := &TransportError{Op: "POST /pages", Status: 502, Err: errors.New("bad gateway")}
	assert.Contains(t, withStatus.Error(), "status 502")
}

func TestNotFoundAndValidation(t *testing.T) {
	nf := NotFound("GET /assets/metadata", "assets/logos/x.svg")
	assert.True(t, IsNotFound(nf))
	assert.Contains(t, nf.Error(), "assets/logos/x.svg")

	verr := &ValidationError{Field: "branding.colors.primary", Value: "#zzz", Reason: "must be a hex color"}
	assert.True(t, IsValidation(verr))
	assert.False(t, IsConflict(verr))
}
