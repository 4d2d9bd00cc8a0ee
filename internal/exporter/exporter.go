// Package exporter runs the per-scrape reporting cycle and exposes its
// samples as Prometheus metrics.
package exporter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartctlexporter/internal/blockdev"
	"smartctlexporter/internal/logger"
	"smartctlexporter/internal/rules"
)

// MetricName is the exposed gauge name.
const MetricName = "smartctl_device_temperature"

var temperatureDesc = prometheus.NewDesc(
	MetricName,
	"device temperature as reported by smartctl",
	[]string{"device"}, nil,
)

// DeviceSource enumerates block devices.
type DeviceSource interface {
	Enumerate(ctx context.Context) ([]blockdev.BlockDevice, error)
}

// DiagnosticSource returns the diagnostic document of one device.
type DiagnosticSource interface {
	Query(ctx context.Context, dev blockdev.BlockDevice) (rules.Document, error)
}

// Sample is one reported temperature.
type Sample struct {
	Signature   string
	Temperature int64
}

// Exporter ties enumeration, filtering, querying and extraction together.
// It holds no per-cycle state; concurrent cycles are independent.
type Exporter struct {
	devices     DeviceSource
	diagnostics DiagnosticSource
	engine      *rules.Engine
	filter      *blockdev.Filter
	clock       clock.Clock
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock replaces the clock used to time cycles.
func WithClock(c clock.Clock) Option {
	return func(e *Exporter) { e.clock = c }
}

// New creates an Exporter. A nil filter excludes by device type only.
func New(devices DeviceSource, diagnostics DiagnosticSource, engine *rules.Engine, filter *blockdev.Filter, opts ...Option) *Exporter {
	if engine == nil {
		engine = rules.DefaultEngine()
	}
	e := &Exporter{
		devices:     devices,
		diagnostics: diagnostics,
		engine:      engine,
		filter:      filter,
		clock:       clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cycle runs one reporting cycle. Devices are processed sequentially in
// enumeration order. An enumeration failure aborts the cycle; a failure on
// one device is logged and the device is skipped.
func (e *Exporter) Cycle(ctx context.Context) ([]Sample, error) {
	log := logger.WithComponent("exporter")
	start := e.clock.Now()

	devices, err := e.devices.Enumerate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Device enumeration failed")
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	eligible := e.filter.Eligible(devices)
	log.Debug().
		Int("enumerated", len(devices)).
		Int("eligible", len(eligible)).
		Msg("Devices filtered")

	samples := make([]Sample, 0, len(eligible))
	seen := make(map[string]struct{}, len(eligible))

	for _, dev := range eligible {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Cycle cancelled")
			break
		}

		signature := dev.Signature()
		temperature, err := e.process(ctx, dev)
		if err != nil {
			log.Warn().Err(err).Str("device", signature).Msg("Cannot process device, skipping")
			continue
		}

		if _, dup := seen[signature]; dup {
			log.Warn().
				Str("device", signature).
				Str("name", dev.Name).
				Msg("Duplicate device signature, dropping sample")
			continue
		}
		seen[signature] = struct{}{}
		samples = append(samples, Sample{Signature: signature, Temperature: temperature})
	}

	log.Debug().
		Int("samples", len(samples)).
		Dur("duration", e.clock.Since(start)).
		Msg("Cycle completed")

	return samples, nil
}

func (e *Exporter) process(ctx context.Context, dev blockdev.BlockDevice) (int64, error) {
	doc, err := e.diagnostics.Query(ctx, dev)
	if err != nil {
		return 0, err
	}
	return e.engine.Process(dev, doc)
}

// Collector returns a collector that runs one cycle per Collect call,
// bound to ctx.
func (e *Exporter) Collector(ctx context.Context) prometheus.Collector {
	return &cycleCollector{exporter: e, ctx: ctx}
}

type cycleCollector struct {
	exporter *Exporter
	ctx      context.Context
}

func (c *cycleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- temperatureDesc
}

func (c *cycleCollector) Collect(ch chan<- prometheus.Metric) {
	samples, err := c.exporter.Cycle(c.ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(temperatureDesc, err)
		return
	}
	for _, s := range samples {
		ch <- prometheus.MustNewConstMetric(temperatureDesc, prometheus.GaugeValue, float64(s.Temperature), s.Signature)
	}
}

// Handler serves the metrics of one fresh cycle per request. The request
// context is passed down so a disconnecting client stops pending queries.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry := prometheus.NewRegistry()
		registry.MustRegister(e.Collector(r.Context()))

		promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog:      promLogger{},
			ErrorHandling: promhttp.HTTPErrorOnError,
		}).ServeHTTP(w, r)
	})
}

// promLogger forwards promhttp errors to the exporter log.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log := logger.WithComponent("exporter")
	log.Error().Msg(fmt.Sprint(v...))
}
