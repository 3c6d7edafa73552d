package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("post: %w", NewValidationError(KindUnbalanced, "debit %s credit %s", "100.00", "90.00"))
	assert.True(t, errors.Is(err, ErrUnbalanced))
	assert.False(t, errors.Is(err, ErrUnknownAccount))
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "debit 100.00 credit 90.00")

	unknown := NewValidationError(KindUnknownAccount, "account %d", 9)
	assert.True(t, errors.Is(unknown, ErrUnknownAccount))
	assert.False(t, IsValidation(ErrJournalNotFound))
}
