// Package metrics publishes realm statistics as Prometheus gauges.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/backupctl/internal/realm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	metricsNamespace = "backup"
	metricsSubsystem = "realm"

	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
)

// Options configures an Aggregator.
type Options struct {
	// Timeout bounds the stat of a single realm.
	Timeout time.Duration
	// Concurrency is the number of realms evaluated at once.
	Concurrency int
	Logger      zerolog.Logger
}

// Result is the outcome of evaluating one realm during a collection.
type Result struct {
	Realm string
	Stat  realm.Stat
	Err   error
}

// Aggregator evaluates every realm of a config and publishes the results to
// its own registry.
type Aggregator struct {
	registry *prometheus.Registry

	up        prometheus.Gauge
	files     *prometheus.GaugeVec
	size      *prometheus.GaugeVec
	timestamp *prometheus.GaugeVec
	success   *prometheus.GaugeVec

	timeout     time.Duration
	concurrency int
	logger      zerolog.Logger

	// mu serializes scrapes so a gather never observes a half-written collection.
	mu sync.Mutex
}

// New returns an Aggregator with a fresh registry.
func New(opts Options) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}

	a := &Aggregator{
		registry: prometheus.NewRegistry(),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "up",
			Help: "Whether the server is running",
		}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "files",
			Help:      "Number of backup files in the realm.",
		}, []string{"realm"}),
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "size_total",
			Help:      "Total size of backup files in the realm, in bytes.",
		}, []string{"realm"}),
		timestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "timestamp",
			Help:      "Unix time of the most recent backup in the realm.",
		}, []string{"realm"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "stat_success",
			Help:      "Whether the last stat of the realm succeeded.",
		}, []string{"realm"}),
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	a.registry.MustRegister(a.up, a.files, a.size, a.timestamp, a.success)
	return a
}

// Collect stats every realm of cfg and publishes the gauges. A failing realm
// is logged and reported in its Result; the other realms are still published.
func (a *Aggregator) Collect(ctx context.Context, cfg *realm.Config) []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collect(ctx, cfg)
}

// Render collects cfg and returns the registry in Prometheus text format.
func (a *Aggregator) Render(ctx context.Context, cfg *realm.Config) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.collect(ctx, cfg)

	families, err := a.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}

func (a *Aggregator) collect(ctx context.Context, cfg *realm.Config) []Result {
	a.up.Set(1)
	a.files.Reset()
	a.size.Reset()
	a.timestamp.Reset()
	a.success.Reset()

	if cfg == nil {
		return nil
	}

	names := cfg.Names()
	results := make([]Result, len(names))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = a.statRealm(ctx, cfg.Realms[name])
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		a.publish(res)
	}
	return results
}

func (a *Aggregator) statRealm(ctx context.Context, r *realm.Realm) Result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	stat, err := r.Stat(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str("realm", r.Name).Dur("elapsed", time.Since(start)).Msg("realm stat failed")
		return Result{Realm: r.Name, Err: err}
	}

	a.logger.Debug().
		Str("realm", r.Name).
		Uint32("files", stat.TotalCount).
		Int64("size", stat.TotalSize).
		Time("latest", stat.Latest).
		Dur("elapsed", time.Since(start)).
		Msg("realm stat collected")
	return Result{Realm: r.Name, Stat: stat}
}

func (a *Aggregator) publish(res Result) {
	if res.Err != nil {
		a.success.WithLabelValues(res.Realm).Set(0)
		return
	}

	var latest float64
	if !res.Stat.Latest.IsZero() {
		latest = float64(res.Stat.Latest.Unix())
	}
	a.files.WithLabelValues(res.Realm).Set(float64(res.Stat.TotalCount))
	a.size.WithLabelValues(res.Realm).Set(float64(res.Stat.TotalSize))
	a.timestamp.WithLabelValues(res.Realm).Set(latest)
	a.success.WithLabelValues(res.Realm).Set(1)
}
