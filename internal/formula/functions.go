package formula

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
)

var unary = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"exp":   math.Exp,
	"log":   math.Log,
	"ln":    math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
}

var functions = buildFunctions()

func buildFunctions() map[string]govaluate.ExpressionFunction {
	funcs := make(map[string]govaluate.ExpressionFunction, len(unary)+1)
	for name, fn := range unary {
		funcs[name] = wrap(name, 1, func(args []float64) float64 { return fn(args[0]) })
	}
	funcs["pow"] = wrap("pow", 2, func(args []float64) float64 { return math.Pow(args[0], args[1]) })
	return funcs
}

// Functions возвращает имена поддерживаемых функций
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func wrap(name string, arity int, fn func([]float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("%s: expected %d argument(s), got %d", name, arity, len(args))
		}
		vals := make([]float64, arity)
		for i, a := range args {
			v, err := toFloat(a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			vals[i] = v
		}
		return fn(vals), nil
	}
}
