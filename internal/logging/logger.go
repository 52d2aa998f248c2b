// Package logging настраивает zerolog для CLI и сервера.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"brent_opt/internal/optimizer"
)

// Форматы вывода
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New создаёт логгер с уровнем level ("debug", "info", ...) и форматом
// FormatJSON или FormatConsole.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// IterObserver возвращает onIter, который пишет каждую итерацию в лог на уровне debug
func IterObserver(logger zerolog.Logger, label string) func(optimizer.Iter) error {
	return func(it optimizer.Iter) error {
		logger.Debug().
			Str("func", label).
			Int("k", it.K).
			Str("step", string(it.Step)).
			Float64("a", it.A).
			Float64("b", it.B).
			Float64("x", it.X).
			Float64("fx", it.FX).
			Float64("len", it.Len).
			Msg("iteration")
		return nil
	}
}
