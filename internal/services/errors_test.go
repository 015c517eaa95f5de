package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.True(t, verr.Empty())
	assert.NoError(t, verr.OrNil())

	verr.Require("servings")
	verr.Add("title", "this field may not be blank")
	verr.Add("title", "second message is ignored")
	verr.Add("difficulty", "bad choice")

	err := verr.OrNil()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "missing required fields: servings; difficulty: bad choice; title: this field may not be blank", err.Error())
}

func TestStorageError(t *testing.T) {
	cause := errors.New("access denied")
	err := fmt.Errorf("upload: %w", &StorageError{Op: "save", Err: cause})

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)

	var serr *StorageError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, "image storage save: access denied", serr.Error())
}
