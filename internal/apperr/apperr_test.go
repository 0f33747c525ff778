package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("signup: %w", Conflict("Email already registered"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "Email already registered", Public(err))
	assert.Equal(t, http.StatusConflict, KindOf(err).Status())
}

func TestUnknownErrorsAreDependency(t *testing.T) {
	err := errors.New("connection reset by peer")

	assert.Equal(t, KindDependency, KindOf(err))
	assert.Equal(t, MsgUnexpected, Public(err))
	assert.Equal(t, http.StatusInternalServerError, KindOf(err).Status())
}

func TestDependencyHidesCause(t *testing.T) {
	cause := errors.New("mongo: server selection timeout")
	err := Dependency(cause)

	assert.Equal(t, MsgUnexpected, Public(err))
	assert.ErrorIs(t, err, cause)
}

func TestAuthorizationIsGeneric(t *testing.T) {
	assert.Equal(t, MsgInvalidCredentials, Public(Authorization()))
	assert.Equal(t, http.StatusUnauthorized, KindOf(InvalidToken()).Status())
	assert.True(t, Is(InvalidToken(), KindAuthorization))
	assert.False(t, Is(nil, KindAuthorization))
}
