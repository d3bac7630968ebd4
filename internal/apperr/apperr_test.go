package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration", Configuration("gemini.New", "GEMINI_API_KEY is required"), false},
		{"exhausted", New(KindExhausted, "booth", errors.New("3 attempts")), false},
		{"generation", Generation("generate", errors.New("blocked")), true},
		{"composition wrapped", fmt.Errorf("attempt 2: %w", Composition("background", errors.New("missing"))), true},
		{"plain", errors.New("boom"), true},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := Generation("gemini.Generate", errors.New("no image part"))
	assert.Equal(t, "gemini.Generate: generation: no image part", err.Error())
	assert.True(t, Is(fmt.Errorf("wrap: %w", err), KindGeneration))
	assert.False(t, Is(err, KindComposition))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
}
