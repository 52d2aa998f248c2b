package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apperrors "brent_opt/internal/errors"
	"brent_opt/internal/formula"
	"brent_opt/internal/logging"
	"brent_opt/internal/optimizer"
)

type minimizeOptions struct {
	funcs    []string
	a, b     float64
	delta    float64
	trace    bool
	jsonOut  bool
	parallel int
}

// Outcome — результат минимизации одной формулы
type Outcome struct {
	Func   string            `json:"func"`
	Method optimizer.Method  `json:"method"`
	Result *optimizer.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`

	err error
}

func newMinimizeCommand(a *app) *cobra.Command {
	o := &minimizeOptions{}
	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Найти минимум функции на отрезке [a, b]",
		Example: `  brentopt minimize --func "x**2 + 3*x + 2" --a -5 --b 5
  brentopt minimize --func "(x-2)^2" --func "exp(x) - 2*x" --a -1 --b 5 --tol 1e-8 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMinimize(cmd.Context(), o)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&o.funcs, "func", "f", nil, "формула f(x); можно указать несколько раз")
	f.Float64Var(&o.a, "a", 0, "левая граница a")
	f.Float64Var(&o.b, "b", 0, "правая граница b")
	f.Float64("tol", optimizer.DefaultTol, "точность")
	f.Int("max-iter", optimizer.DefaultMaxIter, "максимальное количество итераций")
	f.String("method", string(optimizer.MethodBrent), "метод: brent или dichotomy")
	f.Float64Var(&o.delta, "delta", 0, "расстояние между пробными точками дихотомии (по умолчанию tol/2)")
	f.BoolVar(&o.trace, "trace", false, "писать каждую итерацию в лог")
	f.BoolVar(&o.jsonOut, "json", false, "вывод в формате JSON")
	f.IntVar(&o.parallel, "parallel", 0, "сколько формул считать одновременно (0 — все сразу)")
	_ = cmd.MarkFlagRequired("func")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

func (a *app) runMinimize(ctx context.Context, o *minimizeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := apperrors.ValidateRun(o.a, o.b, a.cfg.Tol, a.cfg.MaxIter); err != nil {
		return err
	}
	method, err := optimizer.ParseMethod(a.cfg.Method)
	if err != nil {
		return apperrors.NewValidationError("method", err.Error(), a.cfg.Method)
	}

	// все формулы разбираются до запуска оптимизации
	fns := make([]*formula.Function, len(o.funcs))
	for i, src := range o.funcs {
		if fns[i], err = formula.Parse(src); err != nil {
			return err
		}
	}

	logger := a.logger
	if o.trace {
		logger = logger.Level(zerolog.DebugLevel)
	}
	settings := a.cfg.Settings()
	settings.Delta = o.delta

	outcomes := minimizeAll(ctx, logger, method, fns, o.a, o.b, settings, o.trace, o.parallel)

	if o.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	} else {
		for i, oc := range outcomes {
			if i > 0 {
				fmt.Fprintln(a.out)
			}
			printOutcome(a, oc)
		}
	}

	for _, oc := range outcomes {
		if oc.err != nil {
			return oc.err
		}
	}
	return nil
}

// minimizeAll считает формулы параллельно; ошибка одной формулы не
// останавливает остальные
func minimizeAll(ctx context.Context, logger zerolog.Logger, m optimizer.Method, fns []*formula.Function,
	a, b float64, s optimizer.Settings, trace bool, parallel int) []Outcome {

	outcomes := make([]Outcome, len(fns))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, fn := range fns {
		g.Go(func() error {
			var observe func(optimizer.Iter) error
			if trace {
				observe = logging.IterObserver(logger, fn.String())
			}
			onIter := func(it optimizer.Iter) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if observe != nil {
					return observe(it)
				}
				return nil
			}

			res, err := optimizer.Run(m, fn, a, b, s, onIter)
			oc := Outcome{Func: fn.String(), Method: m, err: err}
			if err != nil {
				oc.Error = err.Error()
				logger.Warn().Err(err).Str("func", fn.String()).Msg("minimization failed")
			} else {
				oc.Result = &res
				logger.Debug().
					Str("func", fn.String()).
					Int("iterations", res.Iterations).
					Bool("converged", res.Converged).
					Msg("minimization finished")
			}
			outcomes[i] = oc
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func printOutcome(a *app, oc Outcome) {
	if oc.err != nil {
		fmt.Fprintf(a.out, "f(x) = %s\n%s\n", oc.Func, describe(oc.err))
		return
	}
	r := oc.Result
	fmt.Fprintf(a.out, "f(x) = %s\n", oc.Func)
	fmt.Fprintf(a.out, "Минимум функции достигается в точке x = %v\n", r.X)
	fmt.Fprintf(a.out, "f(x) = %v\n", r.FX)
	status := "сошёлся"
	if !r.Converged {
		status = "достигнут предел итераций"
	}
	fmt.Fprintf(a.out, "итераций: %d (%s)\n", r.Iterations, status)
}
