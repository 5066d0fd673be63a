package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHintFromErr(t *testing.T) {
	inner := NewError("stripe lookup failed").
		WithHint("Unable to retrieve payment intent").
		Mark(ErrPaymentProcessor)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no hint falls back",
			err:  errors.New("boom"),
			want: "fallback",
		},
		{
			name: "single hint",
			err:  inner,
			want: "Unable to retrieve payment intent",
		},
		{
			name: "outermost hint wins",
			err: WithError(inner).
				WithHint("1 of 1 stale orders could not be reconciled").
				Mark(ErrPaymentProcessor),
			want: "1 of 1 stale orders could not be reconciled",
		},
		{
			name: "blank outer hint is skipped",
			err:  WithError(inner).WithHint("  ").Mark(ErrPaymentProcessor),
			want: "Unable to retrieve payment intent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HintFromErr(tt.err, "fallback"))
		})
	}
}
