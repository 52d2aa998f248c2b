package optimizer

import (
	"fmt"
	"strings"
)

// Method — имя метода минимизации
type Method string

const (
	MethodBrent     Method = "brent"
	MethodDichotomy Method = "dichotomy"
)

// Methods — все поддерживаемые методы
var Methods = []Method{MethodBrent, MethodDichotomy}

// ParseMethod разбирает имя метода; пустая строка означает brent
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodBrent:
		return MethodBrent, nil
	case MethodDichotomy:
		return MethodDichotomy, nil
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// Run запускает выбранный метод.
// Для дихотомии Delta по умолчанию равна Tol/2.
func Run(m Method, f Differentiable, a, b float64, s Settings, onIter func(Iter) error) (Result, error) {
	switch m {
	case MethodBrent, "":
		return BrentDerivative(f, a, b, s, onIter)
	case MethodDichotomy:
		delta := s.Delta
		if delta <= 0 {
			delta = s.Tol / 2
		}
		return Dichotomy(f, a, b, s.Tol, delta, s.MaxIter, onIter)
	}
	return Result{}, fmt.Errorf("unknown method %q", m)
}
