package optimizer

import "math"

var (
	invphi  = (math.Sqrt(5) - 1) / 2 // 1/phi
	invphi2 = (3 - math.Sqrt(5)) / 2 // 1/phi^2
)

// tolFloor не даёт допуску обнулиться вблизи x = 0
const tolFloor = 1e-10

// brentState — состояние одного запуска, живёт только внутри BrentDerivative
type brentState struct {
	a, b       float64 // текущий отрезок, a < b
	x, w, v    float64 // лучшая, вторая и третья точки
	fx, fw, fv float64
	fpx        float64 // f'(x)
	d, e       float64 // последний и предпоследний шаги
}

// BrentDerivative — комбинированный метод Брента с использованием производной.
//
// На каждой итерации сначала пробуется шаг Ньютона x - f(x)/f'(x); если он
// попадает строго внутрь отрезка и уменьшает f, он принимается сразу.
// Иначе делается шаг параболической интерполяции по x, w, v, а если она
// ненадёжна — шаг золотого сечения.
//
// Исчерпание MaxIter ошибкой не считается: возвращается лучшая найденная точка
// и Result.Converged = false. Проверка a < b, Tol > 0 и MaxIter > 0 лежит на
// вызывающем коде. onIter вызывается после каждой итерации; если вернёт
// ErrStopped — алгоритм прерывается.
func BrentDerivative(f Differentiable, a, b float64, s Settings, onIter func(Iter) error) (Result, error) {
	c := &counter{f: f, df: f}
	st := &brentState{a: a, b: b}
	st.d = b - a
	st.e = st.d
	st.x = a + invphi2*(b-a)
	st.w, st.v = st.x, st.x

	var err error
	if st.fx, err = c.eval(st.x); err != nil {
		return st.result(c, 0, false), err
	}
	st.fw, st.fv = st.fx, st.fx
	if st.fpx, err = c.deriv(st.x); err != nil {
		return st.result(c, 0, false), err
	}

	for k := 1; k <= s.MaxIter; k++ {
		mid, tol1, tol2 := st.tolerances(s.Tol)
		if math.Abs(st.x-mid) <= tol2-(st.b-st.a)/2 {
			return st.result(c, k-1, true), nil
		}

		step := StepNewton
		accepted, err := st.newton(c)
		if err != nil {
			return st.result(c, k, false), err
		}
		if !accepted {
			step = st.propose(mid, tol1, tol2)
			if err := st.advance(c, tol1); err != nil {
				return st.result(c, k, false), err
			}
		}

		if err := notify(onIter, st.iter(k, step)); err != nil {
			return st.result(c, k, false), err
		}
	}

	return st.result(c, s.MaxIter, false), nil
}

// Minimize — краткая форма BrentDerivative для обычных функций f и f'
func Minimize(f, df func(float64) float64, a, b, tol float64, maxIter int) (x, fx float64, err error) {
	r, err := BrentDerivative(FuncOf(f, df), a, b, Settings{Tol: tol, MaxIter: maxIter}, nil)
	return r.X, r.FX, err
}

func (st *brentState) tolerances(tol float64) (mid, tol1, tol2 float64) {
	mid = (st.a + st.b) / 2
	tol1 = tol*math.Abs(st.x) + tolFloor
	tol2 = 2 * tol1
	return mid, tol1, tol2
}

// newton пробует шаг Ньютона. Шаг принимается жадно: достаточно ft < fx,
// f'(t) до принятия не проверяется.
func (st *brentState) newton(c *counter) (bool, error) {
	if st.fpx == 0 {
		return false, nil
	}
	t := st.x - st.fx/st.fpx
	if math.IsNaN(t) {
		return false, nil
	}
	t = math.Max(st.a, math.Min(t, st.b))
	// на границе шаг всё равно не будет принят
	if !(st.a < t && t < st.b) {
		return false, nil
	}
	ft, err := c.eval(t)
	if err != nil || ft >= st.fx {
		return false, err
	}

	// f(t) < f(x): при унимодальности минимум не лежит по другую сторону от x
	if t > st.x {
		st.a = st.x
	} else {
		st.b = st.x
	}
	st.x, st.fx = t, ft
	st.fpx, err = c.deriv(st.x)
	return true, err
}

// propose выбирает шаг d: параболический, если он надёжен, иначе золотое сечение
func (st *brentState) propose(mid, tol1, tol2 float64) Step {
	if st.e != 0 {
		r := (st.x - st.w) * (st.fx - st.fv)
		q := (st.x - st.v) * (st.fx - st.fw)
		p := (st.x-st.v)*q - (st.x-st.w)*r
		q = 2 * (q - r)
		if q > 0 {
			p = -p
		}
		q = math.Abs(q)
		etemp := st.e
		st.e = st.d

		if math.Abs(p) < math.Abs(q*etemp) && p > q*(st.a-st.x) && p < q*(st.b-st.x) {
			st.d = p / q
			u := st.x + st.d
			// не вычисляем f вплотную к границе
			if u-st.a < tol2 || st.b-u < tol2 {
				st.d = math.Copysign(tol1, mid-st.x)
			}
			return StepParabolic
		}
	}

	if st.x < mid {
		st.d = invphi * (st.b - st.x)
	} else {
		st.d = invphi * (st.a - st.x)
	}
	return StepGolden
}

// advance вычисляет f в пробной точке u = x + d и обновляет отрезок и историю
func (st *brentState) advance(c *counter, tol1 float64) error {
	u := st.x + st.d
	if math.Abs(st.d) < tol1 {
		u = st.x + math.Copysign(tol1, st.d)
	}
	fu, err := c.eval(u)
	if err != nil {
		return err
	}

	if fu <= st.fx {
		if u < st.x {
			st.b = st.x
		} else {
			st.a = st.x
		}
		st.v, st.fv = st.w, st.fw
		st.w, st.fw = st.x, st.fx
		st.x, st.fx = u, fu
		st.fpx, err = c.deriv(st.x)
		return err
	}

	if u < st.x {
		st.a = u
	} else {
		st.b = u
	}
	switch {
	case fu <= st.fw || st.w == st.x:
		st.v, st.fv = st.w, st.fw
		st.w, st.fw = u, fu
	case fu <= st.fv || st.v == st.x || st.v == st.w:
		st.v, st.fv = u, fu
	}
	return nil
}

func (st *brentState) iter(k int, step Step) Iter {
	return Iter{
		K:    k,
		A:    st.a,
		B:    st.b,
		X:    st.x,
		FX:   st.fx,
		FPX:  st.fpx,
		Step: step,
		Len:  st.b - st.a,
	}
}

func (st *brentState) result(c *counter, iterations int, converged bool) Result {
	return Result{
		X:          st.x,
		FX:         st.fx,
		Iterations: iterations,
		Converged:  converged,
		FuncEvals:  c.nEval,
		DerivEvals: c.nDeriv,
	}
}
