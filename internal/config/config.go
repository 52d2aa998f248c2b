// Package config собирает настройки приложения: значения по умолчанию,
// YAML-файл, переменные окружения BRENTOPT_* и флаги командной строки
// (в этом порядке, каждый следующий источник перекрывает предыдущий).
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "brent_opt/internal/errors"
	"brent_opt/internal/optimizer"
)

// EnvPrefix — префикс переменных окружения
const EnvPrefix = "BRENTOPT_"

// Значения по умолчанию
const (
	DefaultAddr      = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// AppConfig — настройки CLI и сервера
type AppConfig struct {
	Addr      string  `yaml:"addr"`
	Tol       float64 `yaml:"tol"`
	MaxIter   int     `yaml:"max_iter"`
	Method    string  `yaml:"method"`
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"`
}

// Default возвращает конфигурацию по умолчанию
func Default() AppConfig {
	return AppConfig{
		Addr:      DefaultAddr,
		Tol:       optimizer.DefaultTol,
		MaxIter:   optimizer.DefaultMaxIter,
		Method:    string(optimizer.MethodBrent),
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// LoadFile накладывает на cfg значения из YAML-файла.
// Ключи, которых нет в файле, не меняются.
func (c *AppConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("read config %s: %v", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewConfigError("parse config %s: %v", path, err)
	}
	return nil
}

// ApplyEnv накладывает переменные окружения BRENTOPT_ADDR, BRENTOPT_TOL,
// BRENTOPT_MAX_ITER, BRENTOPT_METHOD, BRENTOPT_LOG_LEVEL, BRENTOPT_LOG_FORMAT.
// lookup обычно os.LookupEnv.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup(EnvPrefix + "TOL"); ok {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.NewConfigError("%sTOL: %v", EnvPrefix, err)
		}
		c.Tol = tol
	}
	if v, ok := lookup(EnvPrefix + "MAX_ITER"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewConfigError("%sMAX_ITER: %v", EnvPrefix, err)
		}
		c.MaxIter = n
	}
	if v, ok := lookup(EnvPrefix + "METHOD"); ok {
		c.Method = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	return nil
}

// Validate проверяет согласованность настроек
func (c AppConfig) Validate() error {
	if !(c.Tol > 0) {
		return apperrors.NewConfigError("tol must be positive, got %g", c.Tol)
	}
	if c.MaxIter <= 0 {
		return apperrors.NewConfigError("max_iter must be positive, got %d", c.MaxIter)
	}
	if _, err := optimizer.ParseMethod(c.Method); err != nil {
		return apperrors.NewConfigError("%v (valid: %s)", err, methodList())
	}
	if c.Addr == "" {
		return apperrors.NewConfigError("addr must not be empty")
	}
	return nil
}

// Settings переводит конфигурацию в параметры оптимизатора
func (c AppConfig) Settings() optimizer.Settings {
	return optimizer.Settings{Tol: c.Tol, MaxIter: c.MaxIter}
}

func methodList() string {
	names := make([]string, len(optimizer.Methods))
	for i, m := range optimizer.Methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
