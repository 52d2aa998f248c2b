package optimizer

import (
	"errors"
	"fmt"
	"math"
)

// Func — интерфейс для абстрактной функции f(x)
type Func interface {
	Eval(x float64) (float64, error)
}

// Differentiable — функция, которая умеет считать свою первую производную
type Differentiable interface {
	Func
	Deriv(x float64) (float64, error)
}

// ErrNonFinite — функция или производная вернула NaN или ±Inf
var ErrNonFinite = errors.New("optimizer: non-finite evaluation")

// EvalError описывает точку, в которой вычисление не удалось
type EvalError struct {
	Fn    string // "f" или "f'"
	X     float64
	Value float64
	Err   error
}

func (e *EvalError) Error() string {
	if errors.Is(e.Err, ErrNonFinite) {
		return fmt.Sprintf("%s(%g) = %g: %v", e.Fn, e.X, e.Value, e.Err)
	}
	return fmt.Sprintf("%s(%g): %v", e.Fn, e.X, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// FuncOf оборачивает обычные замыкания f и f' в Differentiable.
// df может быть nil, тогда Deriv всегда возвращает ошибку.
func FuncOf(f, df func(float64) float64) Differentiable {
	return closureFunc{f: f, df: df}
}

type closureFunc struct {
	f, df func(float64) float64
}

func (c closureFunc) Eval(x float64) (float64, error) { return c.f(x), nil }

func (c closureFunc) Deriv(x float64) (float64, error) {
	if c.df == nil {
		return math.NaN(), errors.New("derivative is not defined")
	}
	return c.df(x), nil
}

// counter считает вычисления и проверяет, что результат конечен
type counter struct {
	f      Func
	df     Differentiable
	nEval  int
	nDeriv int
}

func (c *counter) eval(x float64) (float64, error) {
	c.nEval++
	v, err := c.f.Eval(x)
	if err != nil {
		return v, &EvalError{Fn: "f", X: x, Value: v, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, &EvalError{Fn: "f", X: x, Value: v, Err: ErrNonFinite}
	}
	return v, nil
}

func (c *counter) deriv(x float64) (float64, error) {
	c.nDeriv++
	v, err := c.df.Deriv(x)
	if err != nil {
		return v, &EvalError{Fn: "f'", X: x, Value: v, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, &EvalError{Fn: "f'", X: x, Value: v, Err: ErrNonFinite}
	}
	return v, nil
}
