package server

import (
	"context"
	"sync"
	"time"

	"brent_opt/internal/optimizer"
)

// RunParams — параметры запуска метода
type RunParams struct {
	Func    string  `json:"func"`
	A       float64 `json:"a"`
	B       float64 `json:"b"`
	Tol     float64 `json:"tol"`
	Delta   float64 `json:"delta,omitempty"`
	MaxIter int     `json:"maxIter"`
	Method  string  `json:"method,omitempty"`
}

// RunState — состояние одного запуска
type RunState struct {
	ID        string
	Params    RunParams
	CreatedAt time.Time
	Cancel    context.CancelFunc

	mu       sync.Mutex
	iters    []optimizer.Iter
	result   *optimizer.Result
	err      string
	done     bool
	stopped  bool
	finished time.Time
	doneCh   chan struct{} // закрывается в finish
}

// RunSnapshot — копия состояния запуска для ответа клиенту
type RunSnapshot struct {
	ID         string            `json:"id"`
	Params     RunParams         `json:"params"`
	CreatedAt  time.Time         `json:"createdAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Done       bool              `json:"done"`
	Stopped    bool              `json:"stopped"`
	Err        string            `json:"err,omitempty"`
	LastIter   *optimizer.Iter   `json:"lastIter,omitempty"`
	Result     *optimizer.Result `json:"result,omitempty"`
	Iterations int               `json:"iterations"`
}

func (rs *RunState) addIter(it optimizer.Iter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.iters = append(rs.iters, it)
}

func (rs *RunState) finish(res *optimizer.Result, stopped bool, errMsg string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.result = res
	rs.stopped = stopped
	rs.err = errMsg
	rs.done = res != nil && !stopped && errMsg == ""
	rs.finished = time.Now()
	if rs.doneCh == nil {
		rs.doneCh = make(chan struct{})
	}
	close(rs.doneCh)
}

// Done закрывается, когда запуск завершён. Не зависит от доставки сообщений hub.
func (rs *RunState) Done() <-chan struct{} {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.doneCh == nil {
		rs.doneCh = make(chan struct{})
	}
	return rs.doneCh
}

// Iters возвращает копию итераций
func (rs *RunState) Iters() []optimizer.Iter {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]optimizer.Iter(nil), rs.iters...)
}

// Finished — запуск завершён (успешно, остановлен или с ошибкой)
func (rs *RunState) Finished() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return !rs.finished.IsZero()
}

// Snapshot возвращает согласованную копию состояния
func (rs *RunState) Snapshot() RunSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	s := RunSnapshot{
		ID:         rs.ID,
		Params:     rs.Params,
		CreatedAt:  rs.CreatedAt,
		Done:       rs.done,
		Stopped:    rs.stopped,
		Err:        rs.err,
		Iterations: len(rs.iters),
	}
	if !rs.finished.IsZero() {
		t := rs.finished
		s.FinishedAt = &t
	}
	if n := len(rs.iters); n > 0 {
		last := rs.iters[n-1]
		s.LastIter = &last
	}
	if rs.result != nil {
		r := *rs.result
		s.Result = &r
	}
	return s
}

// store хранит запуски в памяти
type store struct {
	mu   sync.Mutex
	runs map[string]*RunState
}

func newStore() *store {
	return &store{runs: map[string]*RunState{}}
}

func (s *store) save(rs *RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rs.ID] = rs
}

func (s *store) get(id string) *RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// cancelAll останавливает все незавершённые запуски
func (s *store) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rs := range s.runs {
		if rs.Cancel != nil {
			rs.Cancel()
		}
	}
}
