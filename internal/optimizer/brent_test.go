package optimizer

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

type testFunc struct {
	name   string
	f, df  func(float64) float64
	a, b   float64
	optLoc float64
	optVal float64
}

var convexFuncs = []testFunc{
	{
		name:   "shifted square",
		f:      func(x float64) float64 { return (x - 2) * (x - 2) },
		df:     func(x float64) float64 { return 2 * (x - 2) },
		a:      0,
		b:      5,
		optLoc: 2,
		optVal: 0,
	},
	{
		name:   "quadratic",
		f:      func(x float64) float64 { return x*x + 3*x + 2 },
		df:     func(x float64) float64 { return 2*x + 3 },
		a:      -5,
		b:      5,
		optLoc: -1.5,
		optVal: -0.25,
	},
	{
		name:   "exp minus line",
		f:      func(x float64) float64 { return math.Exp(x) - 2*x },
		df:     func(x float64) float64 { return math.Exp(x) - 2 },
		a:      -1,
		b:      3,
		optLoc: math.Ln2,
		optVal: 2 - 2*math.Ln2,
	},
	{
		name:   "cosh",
		f:      func(x float64) float64 { return math.Cosh(x - 1) },
		df:     func(x float64) float64 { return math.Sinh(x - 1) },
		a:      -3,
		b:      4,
		optLoc: 1,
		optVal: 1,
	},
	{
		name:   "x minus log",
		f:      func(x float64) float64 { return x - math.Log(x) },
		df:     func(x float64) float64 { return 1 - 1/x },
		a:      0.2,
		b:      5,
		optLoc: 1,
		optVal: 1,
	},
}

func TestMinimizeShiftedSquare(t *testing.T) {
	x, fx, err := Minimize(
		func(x float64) float64 { return (x - 2) * (x - 2) },
		func(x float64) float64 { return 2 * (x - 2) },
		0, 5, 1e-6, DefaultMaxIter,
	)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x, 1e-5)
	assert.InDelta(t, 0.0, fx, 1e-10)
}

func TestMinimizeQuadratic(t *testing.T) {
	x, fx, err := Minimize(
		func(x float64) float64 { return x*x + 3*x + 2 },
		func(x float64) float64 { return 2*x + 3 },
		-5, 5, DefaultTol, DefaultMaxIter,
	)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, x, 10*DefaultTol)
	assert.InDelta(t, -0.25, fx, 1e-9)
}

func TestBrentConvexFunctions(t *testing.T) {
	const tol = 1e-6
	for _, tf := range convexFuncs {
		t.Run(tf.name, func(t *testing.T) {
			res, err := BrentDerivative(FuncOf(tf.f, tf.df), tf.a, tf.b, Settings{Tol: tol, MaxIter: 200}, nil)
			require.NoError(t, err)
			if math.Abs(res.X-tf.optLoc) > 10*tol {
				t.Errorf("location doesn't match. Expected: %v, Found %v", tf.optLoc, res.X)
			}
			if !scalar.EqualWithinAbsOrRel(res.FX, tf.optVal, 1e-9, 1e-9) {
				t.Errorf("value doesn't match. Expected: %v, Found %v", tf.optVal, res.FX)
			}
			assert.Equal(t, tf.f(res.X), res.FX)
		})
	}
}

func TestBrentBracketShrinks(t *testing.T) {
	for _, tf := range convexFuncs {
		t.Run(tf.name, func(t *testing.T) {
			width := tf.b - tf.a
			var iters []Iter
			_, err := BrentDerivative(FuncOf(tf.f, tf.df), tf.a, tf.b, Settings{Tol: 1e-8, MaxIter: 200}, func(it Iter) error {
				iters = append(iters, it)
				return nil
			})
			require.NoError(t, err)
			require.NotEmpty(t, iters)

			for i, it := range iters {
				assert.Equal(t, i+1, it.K)
				assert.Less(t, it.A, it.B, "iteration %d", it.K)
				assert.LessOrEqual(t, it.Len, width, "iteration %d", it.K)
				assert.GreaterOrEqual(t, it.X, it.A, "iteration %d", it.K)
				assert.LessOrEqual(t, it.X, it.B, "iteration %d", it.K)
				width = it.Len
			}
		})
	}
}

func TestBrentIdempotentOnTightBracket(t *testing.T) {
	const tol = 1e-6
	for _, tf := range convexFuncs {
		t.Run(tf.name, func(t *testing.T) {
			fn := FuncOf(tf.f, tf.df)
			first, err := BrentDerivative(fn, tf.a, tf.b, Settings{Tol: tol, MaxIter: 200}, nil)
			require.NoError(t, err)

			second, err := BrentDerivative(fn, first.X-100*tol, first.X+100*tol, Settings{Tol: tol, MaxIter: 200}, nil)
			require.NoError(t, err)
			assert.InDelta(t, first.X, second.X, tol)
		})
	}
}

func TestBrentMaxIter(t *testing.T) {
	// для x^2 шаг Ньютона делит x пополам и всегда принимается, а отрезок
	// остаётся шире единицы: критерий остановки не выполняется никогда
	f := FuncOf(
		func(x float64) float64 { return x * x },
		func(x float64) float64 { return 2 * x },
	)
	const maxIter = 300
	calls := 0
	res, err := BrentDerivative(f, -1, 1, Settings{Tol: 1e-6, MaxIter: maxIter}, func(it Iter) error {
		calls++
		assert.Equal(t, StepNewton, it.Step, "iteration %d", it.K)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, maxIter, calls)
	assert.Equal(t, maxIter, res.Iterations)
	assert.False(t, res.Converged)
	assert.InDelta(t, 0, res.X, 1e-12)
}

func TestBrentNewtonStepLandsOnMinimum(t *testing.T) {
	const a, b, c = 0.0, 5.0, 2.5
	x0 := a + invphi2*(b-a)
	k := (x0 - c) * (x0 - c)
	f := FuncOf(
		func(x float64) float64 { return (x-c)*(x-c) + k },
		func(x float64) float64 { return 2 * (x - c) },
	)

	var iters []Iter
	res, err := BrentDerivative(f, a, b, Settings{Tol: 1e-6, MaxIter: 200}, func(it Iter) error {
		iters = append(iters, it)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, iters)

	first := iters[0]
	assert.Equal(t, StepNewton, first.Step)
	assert.InDelta(t, c, first.X, 1e-12)
	assert.Less(t, first.FX, 2*k)
	// после шага Ньютона отбрасывается только часть слева от x0
	assert.Equal(t, x0, first.A)
	assert.Equal(t, b, first.B)

	// следующие итерации сужают отрезок вокруг найденной точки, не сдвигая её
	for _, it := range iters[1:] {
		assert.Equal(t, first.X, it.X, "iteration %d", it.K)
		assert.NotEqual(t, StepNewton, it.Step, "iteration %d", it.K)
	}
	assert.Equal(t, first.X, res.X)
	assert.Equal(t, first.FX, res.FX)
	assert.True(t, res.Converged)
	assert.Equal(t, len(iters), res.Iterations)
}

func TestBrentNonFinite(t *testing.T) {
	t.Run("function", func(t *testing.T) {
		f := FuncOf(
			func(x float64) float64 { return math.Log(x - 1) },
			func(x float64) float64 { return 1 / (x - 1) },
		)
		_, err := BrentDerivative(f, -2, 0, DefaultSettings(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonFinite)

		var evalErr *EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "f", evalErr.Fn)
		assert.True(t, math.IsNaN(evalErr.Value))
	})

	t.Run("derivative", func(t *testing.T) {
		f := FuncOf(
			func(x float64) float64 { return x * x },
			func(x float64) float64 { return math.Inf(1) },
		)
		_, err := BrentDerivative(f, -1, 1, DefaultSettings(), nil)
		require.ErrorIs(t, err, ErrNonFinite)

		var evalErr *EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "f'", evalErr.Fn)
	})

	t.Run("missing derivative", func(t *testing.T) {
		f := FuncOf(func(x float64) float64 { return x * x }, nil)
		_, err := BrentDerivative(f, -1, 1, DefaultSettings(), nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNonFinite)
	})
}

func TestBrentStoppedByCallback(t *testing.T) {
	f := FuncOf(
		func(x float64) float64 { return (x - 2) * (x - 2) },
		func(x float64) float64 { return 2 * (x - 2) },
	)
	res, err := BrentDerivative(f, 0, 5, DefaultSettings(), func(it Iter) error {
		if it.K == 3 {
			return ErrStopped
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 3, res.Iterations)

	boom := errors.New("boom")
	_, err = BrentDerivative(f, 0, 5, DefaultSettings(), func(Iter) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestBrentConcurrentCalls(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shift := float64(i) / 4
			x, _, err := Minimize(
				func(x float64) float64 { return (x - shift) * (x - shift) },
				func(x float64) float64 { return 2 * (x - shift) },
				-10, 10, 1e-6, 200,
			)
			if err == nil {
				results[i] = x
			} else {
				results[i] = math.NaN()
			}
		}(i)
	}
	wg.Wait()

	for i, x := range results {
		assert.InDelta(t, float64(i)/4, x, 1e-5, "call %d", i)
	}
}

func TestIterJSONKeepsZeroDerivative(t *testing.T) {
	data, err := json.Marshal(Iter{K: 3, A: 0, B: 5, X: 2.5, FX: 1, Step: StepNewton, Len: 5})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fpx":0`)
}
