package optimizer

import "errors"

// Step — какой шаг был сделан на итерации
type Step string

const (
	StepNewton    Step = "newton"
	StepParabolic Step = "parabolic"
	StepGolden    Step = "golden"
	StepBisect    Step = "bisect"
)

// Iter — одна итерация метода
type Iter struct {
	K    int     `json:"k"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
	X    float64 `json:"x"`
	FX   float64 `json:"fx"`
	FPX  float64 `json:"fpx"`
	Step Step    `json:"step"`
	Len  float64 `json:"len"`
}

// ErrStopped — специальная ошибка для принудительной остановки
var ErrStopped = errors.New("optimizer: stopped by callback")

// Settings — параметры остановки.
// Delta используется только дихотомией (расстояние между пробными точками).
type Settings struct {
	Tol     float64
	MaxIter int
	Delta   float64
}

const (
	DefaultTol     = 1e-5
	DefaultMaxIter = 100
)

// DefaultSettings возвращает значения по умолчанию: tol=1e-5, maxIter=100
func DefaultSettings() Settings {
	return Settings{Tol: DefaultTol, MaxIter: DefaultMaxIter}
}

// Result — найденная точка минимума и статистика запуска
type Result struct {
	X          float64 `json:"x"`
	FX         float64 `json:"fx"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	FuncEvals  int     `json:"funcEvals"`
	DerivEvals int     `json:"derivEvals"`
}

// notify вызывает onIter и приводит ErrStopped к единому виду
func notify(onIter func(Iter) error, it Iter) error {
	if onIter == nil {
		return nil
	}
	if err := onIter(it); err != nil {
		if errors.Is(err, ErrStopped) {
			return ErrStopped
		}
		return err
	}
	return nil
}
