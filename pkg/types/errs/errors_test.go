package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "validation", err: Validation("missing %s", "order_id"), want: true},
		{name: "wrapped not found", err: fmt.Errorf("repo: %w", ErrRecordNotFound), want: true},
		{name: "version conflict", err: ErrVersionConflict, want: false},
		{name: "infra", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}

func TestValidationMessage(t *testing.T) {
	err := Validation("items[%d]: missing product_id", 2)

	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "validation failed: items[2]: missing product_id")
}
