// Package server — HTTP API для запуска минимизации с потоковой выдачей итераций.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brent_opt/internal/optimizer"
	"brent_opt/internal/sse"
)

const (
	// DefaultSampleSize — число точек графика, которые возвращает /start
	DefaultSampleSize = 400
	shutdownTimeout   = 5 * time.Second
)

// Options — настройки сервера. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Logger     zerolog.Logger
	Defaults   optimizer.Settings
	Method     optimizer.Method
	SampleSize int
}

// Server хранит запуски и раздаёт их итерации подписчикам
type Server struct {
	logger     zerolog.Logger
	defaults   optimizer.Settings
	method     optimizer.Method
	sampleSize int

	hub   *sse.Hub
	runs  *store
	newID func() string
}

// New создаёт сервер
func New(opts Options) *Server {
	s := &Server{
		logger:     opts.Logger,
		defaults:   opts.Defaults,
		method:     opts.Method,
		sampleSize: opts.SampleSize,
		hub:        sse.NewHub(64),
		runs:       newStore(),
		newID:      uuid.NewString,
	}
	if s.defaults.Tol <= 0 {
		s.defaults.Tol = optimizer.DefaultTol
	}
	if s.defaults.MaxIter <= 0 {
		s.defaults.MaxIter = optimizer.DefaultMaxIter
	}
	if s.method == "" {
		s.method = optimizer.MethodBrent
	}
	if s.sampleSize < 2 {
		s.sampleSize = DefaultSampleSize
	}
	return s
}

// ListenAndServe обслуживает addr, пока не отменён ctx. При остановке
// прерывает все запуски и закрывает SSE-потоки.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down")
		s.runs.cancelAll()
		cancelBase()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
