package algorithm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/swarm"
)

// runner is the Algorithm behind every registered strategy: it drains the
// queue on a swarm and asks the strategy's PathCounter for each job.
type runner struct {
	strategy Strategy
	view     *graph.View
	factory  Factory

	queue *Queue
	opts  Options
}

func (r *runner) Name() Strategy { return r.strategy }

func (r *runner) Submit(q *Queue) {
	r.SubmitWithOptions(q, Options{})
}

func (r *runner) SubmitWithOptions(q *Queue, opts Options) {
	r.queue = q
	r.opts = opts
}

// Run drains the submitted queue and returns once every job completed.
// If ctx ends first a *RunError with completed and pending counts is
// returned and no result.
func (r *runner) Run(ctx context.Context) (*Result, error) {
	if r.queue == nil {
		return nil, ErrNoQueue
	}

	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := r.opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("strategy", string(r.strategy), "topology", r.view.Topology)

	total := r.queue.Len()
	ctx, span := otel.Tracer("topoweak/algorithm").Start(ctx, "Algorithm.Run", trace.WithAttributes(
		attribute.String("strategy", string(r.strategy)),
		attribute.Int("jobs", total),
		attribute.Int("workers", workers),
	))
	defer span.End()

	meter := otel.Meter("topoweak/algorithm")
	completedCounter, _ := meter.Int64Counter("topoweak.jobs.completed",
		metric.WithDescription("Weak-node jobs that produced a verdict"))
	unverifiedCounter, _ := meter.Int64Counter("topoweak.jobs.unverified",
		metric.WithDescription("Weak-node jobs that failed and vote weak"))
	strategyAttr := metric.WithAttributes(attribute.String("strategy", string(r.strategy)))

	start := time.Now()
	count := r.factory(r.view)
	cache := newPathCache()
	res := newResult(r.strategy, total)

	var progressed atomic.Int64
	var progressMu sync.Mutex
	finish := func() {
		n := int(progressed.Add(1))
		if r.opts.Progress != nil {
			progressMu.Lock()
			r.opts.Progress(n, total)
			progressMu.Unlock()
		}
	}

	// Unbuffered: a job leaves the queue only when a worker takes it.
	pool := swarm.NewEngine(workers, swarm.WithLogger(logger), swarm.WithBuffer(0))
	pool.Start(ctx)

	var submitErr error
	for {
		job, ok := r.queue.Pop()
		if !ok {
			break
		}
		err := pool.Submit(ctx, func(ctx context.Context) error {
			defer finish()
			err := r.process(job, count, cache, res)
			if err != nil {
				unverifiedCounter.Add(ctx, 1, strategyAttr)
				logger.Warn("Job unverified", "source", nodeName(job.Source), "target", nodeName(job.Target), "error", err)
			} else {
				completedCounter.Add(ctx, 1, strategyAttr)
			}
			return err
		})
		if err != nil {
			submitErr = err
			break
		}
	}
	if submitErr != nil {
		pool.Stop()
	} else {
		pool.Wait()
	}

	stats := pool.GetStats()
	completed := int(stats.TasksCompleted + stats.TasksFailed)
	res.Completed = completed
	if completed < total {
		cause := submitErr
		if cause == nil {
			cause = ctx.Err()
		}
		runErr := &RunError{Strategy: r.strategy, Completed: completed, Pending: total - completed, Err: cause}
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		logger.Error("Weak-node run aborted", "completed", completed, "pending", total-completed, "error", cause)
		return nil, runErr
	}

	span.SetAttributes(
		attribute.Int64("jobs.failed", stats.TasksFailed),
		attribute.Int("cache.hits", res.CacheHits),
		attribute.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	logger.Debug("Weak-node run completed", "jobs", total, "failed", res.Failed, "cache_hits", res.CacheHits,
		"duration", time.Since(start))
	return res, nil
}

// process computes one job and merges its vote. A panic inside the counter
// is turned into an unverified vote instead of killing the worker.
func (r *runner) process(job Job, count PathCounter, cache *pathCache, res *Result) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("route count %s->%s panicked: %v", nodeName(job.Source), nodeName(job.Target), rec)
			res.fail(job.Source, err)
		}
	}()

	s, okS := r.view.Index(job.Source)
	t, okT := r.view.Index(job.Target)
	if !okS || !okT {
		err = fmt.Errorf("%w: %s->%s", ErrForeignNode, nodeName(job.Source), nodeName(job.Target))
		res.fail(job.Source, err)
		return err
	}

	key := cacheKey{source: s, target: t, limit: job.Limit}
	if job.UseCache {
		if paths, ok := cache.get(key); ok {
			res.hit()
			res.record(job.Source, paths, paths >= job.Limit)
			return nil
		}
	}

	paths, err := count(s, t, job.Limit)
	if err != nil {
		err = fmt.Errorf("route count %s->%s: %w", nodeName(job.Source), nodeName(job.Target), err)
		res.fail(job.Source, err)
		return err
	}
	if job.UseCache {
		cache.put(key, paths)
	}
	res.record(job.Source, paths, paths >= job.Limit)
	return nil
}

func nodeName(n *graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Name
}
