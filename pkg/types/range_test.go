package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       Range
		wantErr bool
	}{
		{"single position", NewRange(3, 5, 3, 5), false},
		{"multi line", NewRange(1, 10, 4, 1), false},
		{"same line columns ordered", NewRange(2, 1, 2, 9), false},
		{"start line after end line", NewRange(10, 1, 5, 1), true},
		{"start column after end column", NewRange(2, 9, 2, 1), true},
		{"zero line", NewRange(0, 1, 1, 1), true},
		{"negative column", NewRange(1, -1, 1, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPositionBefore(t *testing.T) {
	assert.True(t, Position{1, 5}.Before(Position{2, 1}))
	assert.True(t, Position{2, 1}.Before(Position{2, 2}))
	assert.False(t, Position{2, 2}.Before(Position{2, 2}))
	assert.False(t, Position{3, 1}.Before(Position{2, 9}))
}
