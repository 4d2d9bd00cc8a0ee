package rules

import (
	"errors"
	"fmt"

	"smartctlexporter/internal/blockdev"
	"smartctlexporter/internal/logger"
)

// ErrUnsupportedDevice is matched by every *UnsupportedDeviceError.
var ErrUnsupportedDevice = errors.New("device is not supported")

// UnsupportedDeviceError reports that no matcher found a temperature. It is
// an expected outcome for devices without a sensor or with an unknown
// layout, not a failure of the diagnostic query.
type UnsupportedDeviceError struct {
	Signature string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("device %q is not supported at the moment", e.Signature)
}

// Is makes errors.Is(err, ErrUnsupportedDevice) hold.
func (e *UnsupportedDeviceError) Is(target error) bool {
	return target == ErrUnsupportedDevice
}

// Matcher locates a temperature in one diagnostic dialect. TryExtract must
// be total: a missing path or a value of the wrong kind reports false so
// the engine can fall through to the next matcher.
type Matcher interface {
	Name() string
	TryExtract(dev blockdev.BlockDevice, doc Document) (int64, bool)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc struct {
	name string
	fn   func(blockdev.BlockDevice, Document) (int64, bool)
}

// NewMatcherFunc names fn as a Matcher.
func NewMatcherFunc(name string, fn func(blockdev.BlockDevice, Document) (int64, bool)) MatcherFunc {
	return MatcherFunc{name: name, fn: fn}
}

// Name returns the matcher name.
func (m MatcherFunc) Name() string { return m.name }

// TryExtract calls the wrapped function.
func (m MatcherFunc) TryExtract(dev blockdev.BlockDevice, doc Document) (int64, bool) {
	return m.fn(dev, doc)
}

// Engine tries its matchers in registration order and returns the first
// temperature found. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	matchers []Matcher
}

// NewEngine creates an engine with the given matchers, highest priority first.
func NewEngine(matchers ...Matcher) *Engine {
	return &Engine{matchers: append([]Matcher(nil), matchers...)}
}

// DefaultEngine returns an engine with the built-in matchers:
// NVMe health log, generic temperature node, ATA airflow attribute.
func DefaultEngine() *Engine {
	return NewEngine(
		NVMeHealthLog,
		TemperatureNode,
		ATAAirflowTemperature,
	)
}

// With returns a new engine with m appended after the existing matchers.
func (e *Engine) With(m Matcher) *Engine {
	matchers := make([]Matcher, 0, len(e.matchers)+1)
	matchers = append(matchers, e.matchers...)
	return &Engine{matchers: append(matchers, m)}
}

// Matchers returns the matcher names in priority order.
func (e *Engine) Matchers() []string {
	names := make([]string, len(e.matchers))
	for i, m := range e.matchers {
		names[i] = m.Name()
	}
	return names
}

// Process returns the temperature reported by the first matching matcher,
// or an *UnsupportedDeviceError when none matches.
func (e *Engine) Process(dev blockdev.BlockDevice, doc Document) (int64, error) {
	log := logger.WithComponent("rules")
	signature := dev.Signature()

	for _, m := range e.matchers {
		log.Trace().Str("device", signature).Str("matcher", m.Name()).Msg("Checking matcher")

		temperature, ok := e.try(m, dev, doc)
		if !ok {
			continue
		}
		log.Debug().
			Str("device", signature).
			Str("matcher", m.Name()).
			Int64("temperature", temperature).
			Msg("Temperature extracted")
		return temperature, nil
	}

	log.Debug().Str("device", signature).Msg("No matcher found a temperature")
	return 0, &UnsupportedDeviceError{Signature: signature}
}

// try shields the chain from a misbehaving third-party matcher.
func (e *Engine) try(m Matcher, dev blockdev.BlockDevice, doc Document) (temperature int64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.WithComponent("rules")
			log.Error().
				Str("device", dev.Signature()).
				Str("matcher", m.Name()).
				Interface("panic", r).
				Msg("Matcher panicked, treating as no match")
			temperature, ok = 0, false
		}
	}()
	return m.TryExtract(dev, doc)
}
