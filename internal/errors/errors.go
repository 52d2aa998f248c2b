// Package apperrors определяет классы ошибок приложения и коды выхода.
// Ошибки формулы, ошибки ввода и ошибки вычисления различаются, чтобы
// пользователь видел, что именно пошло не так: формула или численное поведение.
package apperrors

import (
	"context"
	"errors"
	"fmt"

	"brent_opt/internal/formula"
	"brent_opt/internal/optimizer"
)

// Коды выхода
const (
	ExitSuccess       = 0
	ExitErrorGeneric  = 1
	ExitErrorConfig   = 2
	ExitErrorFormula  = 3
	ExitErrorNumeric  = 4
	ExitErrorCanceled = 130
)

// ConfigError — неверная конфигурация или флаги
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError создаёт ConfigError с форматированным сообщением
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError — параметры запуска нарушают контракт вызывающего кода
// (a < b, tol > 0, maxIter > 0)
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// NewValidationError создаёт ValidationError
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}

// ValidateRun проверяет параметры запуска минимизации
func ValidateRun(a, b, tol float64, maxIter int) error {
	if !(a < b) {
		return NewValidationError("bracket", fmt.Sprintf("a must be less than b (a=%g, b=%g)", a, b), [2]float64{a, b})
	}
	if !(tol > 0) {
		return NewValidationError("tol", "must be positive", tol)
	}
	if maxIter <= 0 {
		return NewValidationError("maxIter", "must be a positive integer", maxIter)
	}
	return nil
}

// IsContextError — ошибка отмены или истечения контекста
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode сопоставляет ошибке код выхода
func ExitCode(err error) int {
	var (
		cfgErr  ConfigError
		valErr  ValidationError
		formErr *formula.FormulaError
		evalErr *optimizer.EvalError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case IsContextError(err), errors.Is(err, optimizer.ErrStopped):
		return ExitErrorCanceled
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitErrorConfig
	case errors.As(err, &formErr):
		return ExitErrorFormula
	case errors.As(err, &evalErr), errors.Is(err, optimizer.ErrNonFinite):
		return ExitErrorNumeric
	}
	return ExitErrorGeneric
}
