package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	apperrors "brent_opt/internal/errors"
	"brent_opt/internal/formula"
	"brent_opt/internal/optimizer"
)

// типы SSE-сообщений
const (
	msgStart    = "start"
	msgIter     = "iter"
	msgDone     = "done"
	msgStopped  = "stopped"
	msgError    = "error"
	msgSnapshot = "snapshot"
)

// StartRun запускает новый процесс минимизации
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "только POST", http.StatusMethodNotAllowed)
		return
	}

	var p RunParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "ошибка JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, f, err := s.prepare(&p)
	if err != nil {
		writePrepareError(w, err)
		return
	}

	// предварительно считаем значения функции для графика
	xs, ys := formula.Sample(f, p.A, p.B, s.sampleSize)

	id := s.newID()
	ctx, cancel := context.WithCancel(context.Background())
	rs := &RunState{
		ID:        id,
		Params:    p,
		CreatedAt: time.Now(),
		Cancel:    cancel,
	}
	s.runs.save(rs)

	// асинхронный запуск оптимизации
	go s.execute(ctx, rs, m, f)

	writeJSON(w, http.StatusOK, map[string]any{
		"id": id,
		"xs": xs,
		"ys": nullable(ys),
	})
}

// execute выполняет запуск и публикует его события
func (s *Server) execute(ctx context.Context, rs *RunState, m optimizer.Method, f *formula.Function) {
	defer rs.Cancel()
	activeRuns.Inc()
	defer activeRuns.Dec()

	log := s.logger.With().Str("run", rs.ID).Str("method", string(m)).Logger()
	log.Info().
		Str("func", f.String()).
		Float64("a", rs.Params.A).
		Float64("b", rs.Params.B).
		Float64("tol", rs.Params.Tol).
		Int("maxIter", rs.Params.MaxIter).
		Msg("run started")
	s.publish(rs.ID, map[string]any{"type": msgStart, "id": rs.ID})

	onIter := func(it optimizer.Iter) error {
		select {
		case <-ctx.Done():
			return optimizer.ErrStopped
		default:
		}
		rs.addIter(it)
		s.publish(rs.ID, map[string]any{"type": msgIter, "iter": it})
		return nil
	}

	settings := optimizer.Settings{Tol: rs.Params.Tol, MaxIter: rs.Params.MaxIter, Delta: rs.Params.Delta}
	res, err := optimizer.Run(m, f, rs.Params.A, rs.Params.B, settings, onIter)

	switch {
	case errors.Is(err, optimizer.ErrStopped):
		rs.finish(&res, true, "")
		observeRun(m, outcomeStopped, res.Iterations)
		log.Info().Int("iterations", res.Iterations).Msg("run stopped")
		s.publish(rs.ID, map[string]any{"type": msgStopped})

	case err != nil:
		msg := "ошибка при вычислении: " + err.Error()
		rs.finish(nil, false, msg)
		observeRun(m, outcomeError, res.Iterations)
		log.Warn().Err(err).Int("iterations", res.Iterations).Msg("run failed")
		s.publish(rs.ID, map[string]any{"type": msgError, "err": msg})

	default:
		rs.finish(&res, false, "")
		outcome := outcomeMaxIter
		if res.Converged {
			outcome = outcomeConverged
		}
		observeRun(m, outcome, res.Iterations)
		log.Info().
			Float64("x", res.X).
			Float64("fx", res.FX).
			Int("iterations", res.Iterations).
			Bool("converged", res.Converged).
			Msg("run finished")
		s.publish(rs.ID, map[string]any{
			"type":       msgDone,
			"x":          res.X,
			"fx":         res.FX,
			"iterations": res.Iterations,
			"converged":  res.Converged,
		})
	}
}

// StopRun — прерывание процесса минимизации
func (s *Server) StopRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "только POST", http.StatusMethodNotAllowed)
		return
	}
	rs := s.lookup(w, r)
	if rs == nil {
		return
	}

	if rs.Cancel != nil {
		rs.Cancel()
	}

	w.WriteHeader(http.StatusNoContent)
}

// Result — текущее состояние запуска
func (s *Server) Result(w http.ResponseWriter, r *http.Request) {
	rs := s.lookup(w, r)
	if rs == nil {
		return
	}
	writeJSON(w, http.StatusOK, rs.Snapshot())
}

// ExportCSV — экспорт итераций в CSV
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rs := s.lookup(w, r)
	if rs == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=iterations_"+rs.ID+".csv")

	cw := csv.NewWriter(w)
	defer cw.Flush()

	_ = cw.Write([]string{"k", "step", "a", "b", "x", "f(x)", "f'(x)", "b-a"})

	for _, it := range rs.Iters() {
		_ = cw.Write([]string{
			strconv.Itoa(it.K),
			string(it.Step),
			fmtFloat(it.A),
			fmtFloat(it.B),
			fmtFloat(it.X),
			fmtFloat(it.FX),
			fmtFloat(it.FPX),
			fmtFloat(it.Len),
		})
	}
}

// Minimize — синхронная минимизация, результат в ответе
func (s *Server) Minimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "только POST", http.StatusMethodNotAllowed)
		return
	}

	var p RunParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "ошибка JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	m, f, err := s.prepare(&p)
	if err != nil {
		writePrepareError(w, err)
		return
	}

	ctx := r.Context()
	onIter := func(optimizer.Iter) error { return ctx.Err() }

	settings := optimizer.Settings{Tol: p.Tol, MaxIter: p.MaxIter, Delta: p.Delta}
	res, err := optimizer.Run(m, f, p.A, p.B, settings, onIter)
	if err != nil {
		if apperrors.IsContextError(err) {
			observeRun(m, outcomeStopped, res.Iterations)
			return
		}
		observeRun(m, outcomeError, res.Iterations)
		s.logger.Warn().Err(err).Str("func", f.String()).Msg("minimize failed")
		http.Error(w, "ошибка при вычислении: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	outcome := outcomeMaxIter
	if res.Converged {
		outcome = outcomeConverged
	}
	observeRun(m, outcome, res.Iterations)

	writeJSON(w, http.StatusOK, map[string]any{
		"method": m,
		"result": res,
	})
}

// Stream — SSE-стрим итераций
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	rs := s.lookup(w, r)
	if rs == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.hub.Subscribe(rs.ID)
	defer cancel()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// запуск уже закончился — отдаём итог и закрываем поток
	if rs.Finished() {
		writeSnapshot(w, rs)
		flusher.Flush()
		return
	}

	ctx := r.Context()
	done := rs.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			writeEvent(w, msg)
			flusher.Flush()
			if isTerminal(msg) {
				return
			}
		case <-done:
			// итоговое сообщение могло потеряться при переполненном буфере,
			// тогда поток закрывается снимком состояния
		drain:
			for {
				select {
				case msg := <-ch:
					writeEvent(w, msg)
					if isTerminal(msg) {
						flusher.Flush()
						return
					}
				default:
					break drain
				}
			}
			writeSnapshot(w, rs)
			flusher.Flush()
			return
		}
	}
}

func writeSnapshot(w http.ResponseWriter, rs *RunState) {
	msg, _ := json.Marshal(map[string]any{"type": msgSnapshot, "run": rs.Snapshot()})
	writeEvent(w, string(msg))
}

// prepare подставляет значения по умолчанию и проверяет параметры.
// Возвращает ValidationError или *formula.FormulaError.
func (s *Server) prepare(p *RunParams) (optimizer.Method, *formula.Function, error) {
	if p.MaxIter == 0 {
		p.MaxIter = s.defaults.MaxIter
	}
	if p.Tol == 0 {
		p.Tol = s.defaults.Tol
	}
	if p.Method == "" {
		p.Method = string(s.method)
	}

	m, err := optimizer.ParseMethod(p.Method)
	if err != nil {
		return "", nil, apperrors.NewValidationError("method", err.Error(), p.Method)
	}
	p.Method = string(m)

	if err := apperrors.ValidateRun(p.A, p.B, p.Tol, p.MaxIter); err != nil {
		return "", nil, err
	}
	if p.Delta < 0 || (m == optimizer.MethodDichotomy && p.Delta >= p.B-p.A) {
		return "", nil, apperrors.NewValidationError("delta", "must be non-negative and less than b-a", p.Delta)
	}

	f, err := formula.Parse(p.Func)
	if err != nil {
		return "", nil, err
	}
	return m, f, nil
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *RunState {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "требуется id", http.StatusBadRequest)
		return nil
	}
	rs := s.runs.get(id)
	if rs == nil {
		http.Error(w, "неизвестный id", http.StatusNotFound)
		return nil
	}
	return rs
}

func (s *Server) publish(id string, payload map[string]any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("run", id).Msg("encode event")
		return
	}
	s.hub.Publish(id, string(msg))
}

func writePrepareError(w http.ResponseWriter, err error) {
	var fe *formula.FormulaError
	if errors.As(err, &fe) {
		http.Error(w, "ошибка в выражении функции: "+fe.Err.Error(), http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEvent(w http.ResponseWriter, msg string) {
	fmt.Fprintf(w, "event: msg\n")
	fmt.Fprintf(w, "data: %s\n\n", msg)
}

func isTerminal(msg string) bool {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg), &head); err != nil {
		return false
	}
	switch head.Type {
	case msgDone, msgStopped, msgError:
		return true
	}
	return false
}

// nullable заменяет NaN на null: encoding/json не умеет кодировать NaN
func nullable(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		if !math.IsNaN(vs[i]) && !math.IsInf(vs[i], 0) {
			out[i] = &vs[i]
		}
	}
	return out
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}
