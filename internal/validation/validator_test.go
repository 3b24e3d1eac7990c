package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviemania/internal/apperr"
	"moviemania/pkg/models"
)

func TestStructUsesJSONNames(t *testing.T) {
	err := Struct(models.Movie{ID: "m1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, "title is required", apperr.Message(err))

	assert.NoError(t, Struct(models.Movie{ID: "m1", Title: "X"}))
}

func TestVar(t *testing.T) {
	err := Var("role", "root", "oneof=owner admin")
	require.Error(t, err)
	assert.Equal(t, "role must be one of: owner admin", apperr.Message(err))

	assert.NoError(t, Var("role", "owner", "oneof=owner admin"))

	err = Var("username", "", "required")
	assert.Equal(t, "username is required", apperr.Message(err))
}
