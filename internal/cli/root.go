// Package cli — командная строка brentopt: minimize, serve и version.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"brent_opt/internal/config"
	apperrors "brent_opt/internal/errors"
	"brent_opt/internal/formula"
	"brent_opt/internal/logging"
	"brent_opt/internal/optimizer"
)

// Version задаётся при сборке через -ldflags
var Version = "dev"

// app — общее состояние команд: конфигурация и логгер собираются в PersistentPreRunE
type app struct {
	out, errOut io.Writer
	lookupEnv   func(string) (string, bool)

	configPath string
	logLevel   string
	logFormat  string

	cfg    config.AppConfig
	logger zerolog.Logger
}

// NewRootCommand собирает дерево команд
func NewRootCommand(out, errOut io.Writer, lookupEnv func(string) (string, bool)) *cobra.Command {
	a := &app{out: out, errOut: errOut, lookupEnv: lookupEnv}

	root := &cobra.Command{
		Use:           "brentopt",
		Short:         "Минимизация функции одной переменной методом Брента с производной",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML-файл конфигурации")
	pf.StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "уровень логирования (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", config.DefaultLogFormat, "формат логов (console, json)")

	root.AddCommand(
		newMinimizeCommand(a),
		newServeCommand(a),
		newVersionCommand(a),
	)
	return root
}

// setup: значения по умолчанию, файл, окружение, затем флаги
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		if err := cfg.LoadFile(a.configPath); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(a.lookupEnv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("tol") {
		cfg.Tol, _ = flags.GetFloat64("tol")
	}
	if flags.Changed("max-iter") {
		cfg.MaxIter, _ = flags.GetInt("max-iter")
	}
	if flags.Changed("method") {
		cfg.Method, _ = flags.GetString("method")
	}
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// Execute выполняет команду и возвращает код выхода
func Execute(ctx context.Context, args []string, out, errOut io.Writer, lookupEnv func(string) (string, bool)) int {
	root := NewRootCommand(out, errOut, lookupEnv)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(errOut, describe(err))
	}
	return apperrors.ExitCode(err)
}

// describe отделяет ошибку формулы от ошибки оптимизации и ошибки ввода
func describe(err error) string {
	var (
		fe *formula.FormulaError
		ve apperrors.ValidationError
		ce apperrors.ConfigError
		ee *optimizer.EvalError
	)
	switch {
	case errors.As(err, &fe):
		return "Ошибка формулы: " + err.Error()
	case errors.As(err, &ve):
		return "Ошибка ввода: " + err.Error()
	case errors.As(err, &ce):
		return "Ошибка конфигурации: " + err.Error()
	case errors.As(err, &ee):
		return "Ошибка оптимизации: " + err.Error()
	}
	return "Ошибка: " + err.Error()
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Версия программы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(a.out, "brentopt", Version)
			return err
		},
	}
}
