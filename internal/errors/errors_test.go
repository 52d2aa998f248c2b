package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"brent_opt/internal/formula"
	"brent_opt/internal/optimizer"
)

func TestValidateRun(t *testing.T) {
	assert.NoError(t, ValidateRun(0, 1, 1e-5, 10))

	tests := []struct {
		name    string
		a, b    float64
		tol     float64
		maxIter int
		field   string
	}{
		{"equal bounds", 1, 1, 1e-5, 10, "bracket"},
		{"reversed bounds", 2, 1, 1e-5, 10, "bracket"},
		{"zero tol", 0, 1, 0, 10, "tol"},
		{"negative tol", 0, 1, -1, 10, "tol"},
		{"zero iterations", 0, 1, 1e-5, 0, "maxIter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRun(tt.a, tt.b, tt.tol, tt.maxIter)
			var ve ValidationError
			if assert.True(t, errors.As(err, &ve)) {
				assert.Equal(t, tt.field, ve.Field)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	_, formErr := formula.Parse("y")
	evalErr := &optimizer.EvalError{Fn: "f", X: 1, Err: optimizer.ErrNonFinite}

	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitErrorGeneric},
		{NewConfigError("bad port %q", "x"), ExitErrorConfig},
		{ValidateRun(1, 0, 1, 1), ExitErrorConfig},
		{formErr, ExitErrorFormula},
		{fmt.Errorf("run: %w", evalErr), ExitErrorNumeric},
		{context.Canceled, ExitErrorCanceled},
		{optimizer.ErrStopped, ExitErrorCanceled},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid tol: must be positive", NewValidationError("tol", "must be positive", 0.0).Error())
	assert.Equal(t, "invalid input: oops", NewValidationError("", "oops", nil).Error())
}
