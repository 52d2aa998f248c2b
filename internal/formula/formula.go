// Package formula превращает строку вида "x**2 + 3*x + 2" в вычислимую
// функцию одной переменной и её производную.
package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"gonum.org/v1/gonum/diff/fd"
)

// Variable — единственная переменная, которую может содержать формула
const Variable = "x"

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// FormulaError — формулу не удалось разобрать. Отличается от ошибок
// вычисления, которые возвращает оптимизатор.
type FormulaError struct {
	Expr string
	Err  error
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %v", e.Expr, e.Err)
}

func (e *FormulaError) Unwrap() error { return e.Err }

// Function — f(x), заданная строкой
type Function struct {
	src  string
	expr *govaluate.EvaluableExpression
}

// Parse разбирает формулу. Поддерживаются + - * / %, ** и ^ (степень),
// скобки, переменная x, константы pi и e и функции из Functions.
func Parse(src string) (*Function, error) {
	norm := normalize(src)
	if norm == "" {
		return nil, &FormulaError{Expr: src, Err: errors.New("empty formula")}
	}

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(rewriteNegation(norm), functions)
	if err != nil {
		return nil, &FormulaError{Expr: src, Err: err}
	}
	for _, v := range expr.Vars() {
		if _, ok := constants[v]; v != Variable && !ok {
			return nil, &FormulaError{Expr: src, Err: fmt.Errorf("unknown variable %q", v)}
		}
	}

	f := &Function{src: norm, expr: expr}
	// пробное вычисление ловит неверное число аргументов и нечисловой результат;
	// NaN и Inf здесь ошибкой не считаются
	if _, err := f.Eval(1); err != nil {
		return nil, &FormulaError{Expr: src, Err: err}
	}
	return f, nil
}

func normalize(src string) string {
	s := strings.TrimSpace(src)
	return strings.ReplaceAll(s, "^", "**")
}

// String возвращает нормализованную формулу
func (f *Function) String() string { return f.src }

// Eval вычисляет f(x). Безопасна для одновременного вызова из нескольких горутин.
func (f *Function) Eval(x float64) (float64, error) {
	params := make(map[string]interface{}, len(constants)+1)
	for k, v := range constants {
		params[k] = v
	}
	params[Variable] = x

	v, err := f.expr.Evaluate(params)
	if err != nil {
		return math.NaN(), err
	}
	return toFloat(v)
}

// Deriv считает f'(x) центральной разностью. Шаг растёт вместе с |x|.
func (f *Function) Deriv(x float64) (float64, error) {
	var evalErr error
	g := func(x float64) float64 {
		v, err := f.Eval(x)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	}
	step := fd.Central.Step * math.Max(1, math.Abs(x))
	d := fd.Derivative(g, x, &fd.Settings{Formula: fd.Central, Step: step})
	if evalErr != nil {
		return math.NaN(), evalErr
	}
	return d, nil
}

// Sample вычисляет n равноотстоящих значений на [a, b] для графика.
// Точки, где функция не определена, получают NaN.
func Sample(f interface {
	Eval(float64) (float64, error)
}, a, b float64, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	h := (b - a) / float64(n-1)
	for i := 0; i < n; i++ {
		x := a + float64(i)*h
		y, err := f.Eval(x)
		if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
			y = math.NaN()
		}
		xs[i], ys[i] = x, y
	}
	return xs, ys
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	default:
		return math.NaN(), fmt.Errorf("expression did not return a number: %T", v)
	}
}
