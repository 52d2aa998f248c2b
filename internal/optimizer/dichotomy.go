package optimizer

// Dichotomy — метод дихотомии, не использует производную.
// На каждой итерации сравниваются две точки, отстоящие от середины на
// delta/2, и отбрасывается половина отрезка. Останавливается, когда
// (b-a)/2 <= eps или исчерпано maxIter.
// onIter вызывается после каждой итерации; если вернёт ErrStopped — алгоритм прерывается.
func Dichotomy(f Func, a, b, eps, delta float64, maxIter int, onIter func(Iter) error) (Result, error) {
	c := &counter{f: f}
	res := func(x, fx float64, k int, converged bool) Result {
		return Result{X: x, FX: fx, Iterations: k, Converged: converged, FuncEvals: c.nEval}
	}

	mid := (a + b) / 2
	fmid, err := c.eval(mid)
	if err != nil {
		return res(mid, fmid, 0, false), err
	}

	for k := 1; k <= maxIter; k++ {
		if (b-a)/2 <= eps {
			return res(mid, fmid, k-1, true), nil
		}

		x1 := (a + b - delta) / 2
		x2 := (a + b + delta) / 2
		fx1, err := c.eval(x1)
		if err != nil {
			return res(mid, fmid, k, false), err
		}
		fx2, err := c.eval(x2)
		if err != nil {
			return res(mid, fmid, k, false), err
		}

		if fx1 <= fx2 {
			b = x2
		} else {
			a = x1
		}

		mid = (a + b) / 2
		if fmid, err = c.eval(mid); err != nil {
			return res(mid, fmid, k, false), err
		}

		it := Iter{K: k, A: a, B: b, X: mid, FX: fmid, Step: StepBisect, Len: b - a}
		if err := notify(onIter, it); err != nil {
			return res(mid, fmid, k, false), err
		}
	}

	return res(mid, fmid, maxIter, (b-a)/2 <= eps), nil
}
