// Package cpupool runs blocking, CPU-bound work (HTML parsing, PDF
// extraction, regex-heavy scraping) on a small dedicated pool so that
// goroutines serving tool calls never park on it directly.
package cpupool

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/rzn-labs/datasourcer/connector"
)

const (
	minWorkers  = 2
	maxWorkers  = 8
	slowJobWarn = 500 * time.Millisecond
)

type job struct {
	fn  func() (any, error)
	out chan result
}

type result struct {
	value any
	err   error
}

// Pool is a fixed-size worker pool. Queue depth is surfaced through
// an OpenTelemetry counter and jobs slower than 500ms are logged.
type Pool struct {
	jobs    chan job
	workers int
	logger  *slog.Logger
	depth   metric.Int64UpDownCounter
	once    sync.Once
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(opts ...Option) *Pool {
	p := &Pool{
		workers: defaultWorkers(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter("github.com/rzn-labs/datasourcer/cpupool")
	depth, err := meter.Int64UpDownCounter("cpupool.queue_depth",
		metric.WithDescription("jobs queued or running on the CPU pool"))
	if err == nil {
		p.depth = depth
	}

	p.jobs = make(chan job, p.workers*4)
	for i := 0; i < p.workers; i++ {
		go p.worker()
	}
	return p
}

func defaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// Do queues fn and waits for its result. A panic inside fn surfaces
// as an internal error; context expiry before completion surfaces as
// a timeout.
func (p *Pool) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	if p == nil {
		return nil, connector.Internal("cpu pool is not initialized", nil)
	}
	j := job{fn: fn, out: make(chan result, 1)}

	p.addDepth(ctx, 1)
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		p.addDepth(ctx, -1)
		return nil, connector.Timeout("cpu pool enqueue cancelled: %v", ctx.Err())
	}

	select {
	case res := <-j.out:
		p.addDepth(ctx, -1)
		return res.value, res.err
	case <-ctx.Done():
		p.addDepth(ctx, -1)
		return nil, connector.Timeout("cpu job cancelled: %v", ctx.Err())
	}
}

// Run is the typed convenience wrapper around Do.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	value, err := p.Do(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, connector.Internal("cpu job returned unexpected type", nil)
	}
	return typed, nil
}

func (p *Pool) worker() {
	for j := range p.jobs {
		start := time.Now()
		value, err := p.runGuarded(j.fn)
		if elapsed := time.Since(start); elapsed > slowJobWarn {
			p.logger.Info("slow cpu job", "duration_ms", elapsed.Milliseconds())
		}
		j.out <- result{value: value, err: err}
	}
}

func (p *Pool) runGuarded(fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = connector.Internal("cpu job panicked", nil)
			p.logger.Error("cpu job panic", "panic", r)
		}
	}()
	return fn()
}

func (p *Pool) addDepth(ctx context.Context, delta int64) {
	if p.depth != nil {
		p.depth.Add(ctx, delta)
	}
}

// Close stops the workers once queued jobs finish.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.jobs) })
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Default returns the process-wide shared pool.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = New()
	})
	return defaultPool
}
