package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// UpkeepService is the check/perform pair driven by the runner. The runner
// excludes payloads whose perform failed earlier in the same tick.
type UpkeepService interface {
	CheckPollableExcluding(ctx context.Context, exclude [][]byte) (bool, []byte, error)
	Perform(ctx context.Context, payload []byte) (string, error)
}

// UpkeepRunnerConfig holds configuration for the upkeep runner
type UpkeepRunnerConfig struct {
	Enabled bool

	// Interval between ticks
	Interval time.Duration

	// MaxPerformsPerTick bounds how many shipments are polled per tick
	MaxPerformsPerTick int

	// TickTimeout is the maximum time for one tick
	TickTimeout time.Duration
}

// DefaultUpkeepRunnerConfig returns default configuration
func DefaultUpkeepRunnerConfig() UpkeepRunnerConfig {
	return UpkeepRunnerConfig{
		Enabled:            true,
		Interval:           time.Minute,
		MaxPerformsPerTick: 10,
		TickTimeout:        30 * time.Second,
	}
}

// UpkeepMetrics are the prometheus collectors of the runner
type UpkeepMetrics struct {
	Ticks        prometheus.Counter
	Performs     *prometheus.CounterVec
	TickDuration prometheus.Histogram
}

// NewUpkeepMetrics registers the runner collectors on reg. A nil reg creates
// unregistered collectors.
func NewUpkeepMetrics(reg prometheus.Registerer) *UpkeepMetrics {
	factory := promauto.With(reg)
	return &UpkeepMetrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplytrace_upkeep_ticks_total",
			Help: "Number of upkeep ticks run",
		}),
		Performs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplytrace_upkeep_performs_total",
			Help: "Number of upkeep performs by result",
		}, []string{"result"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "supplytrace_upkeep_tick_duration_seconds",
			Help:    "Duration of upkeep ticks",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// UpkeepRunner periodically asks the upkeep service whether a shipment needs
// polling and performs the poll, standing in for an external automation network.
type UpkeepRunner struct {
	service UpkeepService
	config  UpkeepRunnerConfig
	metrics *UpkeepMetrics
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewUpkeepRunner creates a new upkeep runner
func NewUpkeepRunner(service UpkeepService, config UpkeepRunnerConfig, metrics *UpkeepMetrics, logger *zap.Logger) *UpkeepRunner {
	defaults := DefaultUpkeepRunnerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxPerformsPerTick <= 0 {
		config.MaxPerformsPerTick = defaults.MaxPerformsPerTick
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = defaults.TickTimeout
	}
	if metrics == nil {
		metrics = NewUpkeepMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpkeepRunner{
		service: service,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// Start starts the runner
func (r *UpkeepRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	if !r.config.Enabled {
		r.mu.Unlock()
		r.logger.Info("Upkeep runner is disabled")
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("Upkeep runner started",
		zap.Duration("interval", r.config.Interval),
		zap.Int("max_performs_per_tick", r.config.MaxPerformsPerTick),
	)
	return nil
}

// Stop gracefully stops the runner
func (r *UpkeepRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Upkeep runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Upkeep runner stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the runner loop is active
func (r *UpkeepRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

func (r *UpkeepRunner) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one check/perform round and returns the number of performs that
// succeeded. A failed perform is skipped for the rest of the tick so one
// rejected shipment cannot hold back the ones behind it. The round ends when
// a check finds nothing, a check fails, or MaxPerformsPerTick performs succeeded.
func (r *UpkeepRunner) Tick(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, r.config.TickTimeout)
	defer cancel()

	timer := prometheus.NewTimer(r.metrics.TickDuration)
	defer timer.ObserveDuration()
	r.metrics.Ticks.Inc()

	performed := 0
	var failed [][]byte
	for performed < r.config.MaxPerformsPerTick {
		needed, payload, err := r.service.CheckPollableExcluding(ctx, failed)
		if err != nil {
			r.metrics.Performs.WithLabelValues("check_error").Inc()
			r.logger.Error("Upkeep check failed", zap.Error(err))
			return performed
		}
		if !needed {
			return performed
		}

		requestID, err := r.service.Perform(ctx, payload)
		if err != nil {
			r.metrics.Performs.WithLabelValues("error").Inc()
			r.logger.Warn("Upkeep perform failed", zap.Error(err))
			failed = append(failed, payload)
			continue
		}
		r.metrics.Performs.WithLabelValues("issued").Inc()
		r.logger.Debug("Upkeep performed", zap.String("request_id", requestID))
		performed++
	}
	return performed
}
