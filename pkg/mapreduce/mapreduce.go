// Package mapreduce runs a bigram job in a single process, standing in for a
// distributed execution substrate: it splits input across parallel map tasks,
// spills and optionally combines map output, partitions records by key,
// groups them for the reduce tasks, and re-runs failed tasks from scratch.
package mapreduce

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"iter"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
	"github.com/dtnitsch/bigram-stripes/pkg/corpus"
	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
)

// DefaultMaxAttempts matches Hadoop's default number of attempts per task.
const DefaultMaxAttempts = 4

// Job holds the functions a run applies. A nil Combine disables combining.
type Job struct {
	Map     func(line string, emit func(bigram.Record))
	Combine func(key string, stripes iter.Seq[*stripe.Stripe]) bigram.Record
	Reduce  func(key string, stripes iter.Seq[*stripe.Stripe], emit func(bigram.Output)) error
}

// BigramJob returns the stripes bigram-frequency job.
func BigramJob(combiner, inMapperCombining bool) Job {
	job := Job{
		Map:    bigram.Map,
		Reduce: bigram.Reduce,
	}
	if inMapperCombining {
		job.Map = bigram.MapCombined
	}
	if combiner {
		job.Combine = bigram.Combine
	}
	return job
}

// Options control parallelism and fault handling. Zero values get defaults.
type Options struct {
	Mappers      int // parallel map workers; defaults to runtime.NumCPU()
	Reducers     int // reduce partitions; defaults to 1
	SpillRecords int // spill map output every N records; 0 spills once per task
	MaxAttempts  int // attempts per task; defaults to DefaultMaxAttempts
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Mappers <= 0 {
		o.Mappers = runtime.NumCPU()
	}
	if o.Reducers <= 0 {
		o.Reducers = 1
	}
	if o.SpillRecords < 0 {
		o.SpillRecords = 0
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Counters are job statistics, named after their Hadoop equivalents.
type Counters struct {
	MapInputLines        int64
	MapOutputRecords     int64
	Spills               int64
	CombineInputRecords  int64
	CombineOutputRecords int64
	ReduceInputGroups    int64
	ReduceInputRecords   int64
	ReduceOutputRecords  int64
	TaskRetries          int64
}

func (c *Counters) add(o Counters) {
	c.MapInputLines += o.MapInputLines
	c.MapOutputRecords += o.MapOutputRecords
	c.Spills += o.Spills
	c.CombineInputRecords += o.CombineInputRecords
	c.CombineOutputRecords += o.CombineOutputRecords
	c.ReduceInputGroups += o.ReduceInputGroups
	c.ReduceInputRecords += o.ReduceInputRecords
	c.ReduceOutputRecords += o.ReduceOutputRecords
	c.TaskRetries += o.TaskRetries
}

// Result is the output of a run. Partitions[i] holds what reducer i emitted,
// keys in ascending order.
type Result struct {
	Partitions [][]bigram.Output
	Counters   Counters
}

// Partition assigns key to one of n reducers.
func Partition(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % n
}

// Run executes job over splits. The result depends only on the splits and
// Options.Reducers: mapper count, spill size, combiner use and retries do not
// change it.
func Run(ctx context.Context, job Job, splits []corpus.Split, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	logger.Info("Starting map phase", "splits", len(splits), "mappers", opts.Mappers, "reducers", opts.Reducers, "combiner", job.Combine != nil)
	mapOutputs, counters, err := runMapPhase(ctx, cancel, job, splits, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Map phase complete", "map_output_records", counters.MapOutputRecords, "spills", counters.Spills, "elapsed", time.Since(start))

	start = time.Now()
	logger.Info("Starting reduce phase", "reducers", opts.Reducers)
	partitions, reduceCounters, err := runReducePhase(ctx, cancel, job, mapOutputs, opts)
	if err != nil {
		return nil, err
	}
	counters.add(reduceCounters)
	logger.Info("Reduce phase complete", "groups", counters.ReduceInputGroups, "output_records", counters.ReduceOutputRecords, "elapsed", time.Since(start))

	return &Result{Partitions: partitions, Counters: counters}, nil
}

// attempt runs fn until it succeeds, the context ends, the error is an
// invariant violation, or MaxAttempts is reached. Panics count as failures.
func attempt[T any](ctx context.Context, opts Options, task string, fn func() (T, error)) (T, int64, error) {
	var retries int64
	for n := 1; ; n++ {
		v, err := recovered(fn)
		if err == nil {
			return v, retries, nil
		}
		if errors.Is(err, bigram.ErrEmptyGroup) || ctx.Err() != nil || n >= opts.MaxAttempts {
			var zero T
			return zero, retries, fmt.Errorf("%s failed after %d attempt(s): %w", task, n, err)
		}
		retries++
		opts.Logger.Warn("Task failed, retrying", "task", task, "attempt", n, "error", err)
	}
}

func recovered[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// firstError prefers a real failure over the cancellations it caused.
func firstError(errs []error) error {
	var ctxErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr == nil {
				ctxErr = err
			}
			continue
		}
		return err
	}
	return ctxErr
}

type mapOutput struct {
	segments [][]byte // encoded records per partition
	counters Counters
}

type mapResult struct {
	index  int
	output *mapOutput
	err    error
}

func runMapPhase(ctx context.Context, cancel context.CancelFunc, job Job, splits []corpus.Split, opts Options) ([]*mapOutput, Counters, error) {
	var wg sync.WaitGroup
	jobs := make(chan int, len(splits))
	results := make(chan mapResult, len(splits))

	for w := 1; w <= opts.Mappers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				split := splits[i]
				task := fmt.Sprintf("map-%05d", split.Index)
				opts.Logger.Debug("Worker started map task", "worker_id", id, "task", task, "source", split.Source, "lines", len(split.Lines))

				out, retries, err := attempt(ctx, opts, task, func() (*mapOutput, error) {
					return runMapTask(ctx, job, split, opts)
				})
				if err != nil {
					opts.Logger.Error("Map task failed", "worker_id", id, "task", task, "error", err)
					cancel()
				} else {
					out.counters.TaskRetries += retries
				}
				results <- mapResult{index: i, output: out, err: err}
			}
		}(w)
	}

	for i := range splits {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)

	outputs := make([]*mapOutput, len(splits))
	errs := make([]error, 0)
	var counters Counters
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		outputs[res.index] = res.output
		counters.add(res.output.counters)
	}
	if err := firstError(errs); err != nil {
		return nil, Counters{}, err
	}
	return outputs, counters, nil
}

func runMapTask(ctx context.Context, job Job, split corpus.Split, opts Options) (*mapOutput, error) {
	out := &mapOutput{segments: make([][]byte, opts.Reducers)}
	var buffer []bigram.Record

	for i, line := range split.Lines {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out.counters.MapInputLines++
		job.Map(line.Text, func(r bigram.Record) {
			buffer = append(buffer, r)
			out.counters.MapOutputRecords++
		})
		if opts.SpillRecords > 0 && len(buffer) >= opts.SpillRecords {
			if err := spill(job, buffer, out); err != nil {
				return nil, err
			}
			clear(buffer)
			buffer = buffer[:0]
		}
	}
	if len(buffer) > 0 {
		if err := spill(job, buffer, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// spill groups buffered records by key, runs the combiner over each group
// when there is one, and appends the result to the partition segments.
func spill(job Job, buffer []bigram.Record, out *mapOutput) error {
	groups := make(map[string][]*stripe.Stripe)
	for _, r := range buffer {
		groups[r.Key] = append(groups[r.Key], r.Stripe)
	}

	n := len(out.segments)
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		p := Partition(key, n)
		stripes := groups[key]

		if job.Combine != nil {
			combined := job.Combine(key, slices.Values(stripes))
			out.counters.CombineInputRecords += int64(len(stripes))
			out.counters.CombineOutputRecords++

			seg, err := bigram.AppendRecord(out.segments[p], combined)
			if err != nil {
				return fmt.Errorf("failed to encode record for %q: %w", key, err)
			}
			out.segments[p] = seg
			continue
		}

		for _, s := range stripes {
			seg, err := bigram.AppendRecord(out.segments[p], bigram.Record{Key: key, Stripe: s})
			if err != nil {
				return fmt.Errorf("failed to encode record for %q: %w", key, err)
			}
			out.segments[p] = seg
		}
	}
	out.counters.Spills++
	return nil
}

type reduceResult struct {
	partition int
	outputs   []bigram.Output
	counters  Counters
	err       error
}

func runReducePhase(ctx context.Context, cancel context.CancelFunc, job Job, mapOutputs []*mapOutput, opts Options) ([][]bigram.Output, Counters, error) {
	var wg sync.WaitGroup
	jobs := make(chan int, opts.Reducers)
	results := make(chan reduceResult, opts.Reducers)

	for w := 1; w <= opts.Reducers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for p := range jobs {
				task := fmt.Sprintf("reduce-%05d", p)
				opts.Logger.Debug("Worker started reduce task", "worker_id", id, "task", task)

				type taskOutput struct {
					outputs  []bigram.Output
					counters Counters
				}
				out, retries, err := attempt(ctx, opts, task, func() (taskOutput, error) {
					outputs, counters, err := runReduceTask(ctx, job, p, mapOutputs)
					return taskOutput{outputs, counters}, err
				})
				if err != nil {
					opts.Logger.Error("Reduce task failed", "worker_id", id, "task", task, "error", err)
					cancel()
				}
				out.counters.TaskRetries += retries
				results <- reduceResult{partition: p, outputs: out.outputs, counters: out.counters, err: err}
			}
		}(w)
	}

	for p := range opts.Reducers {
		jobs <- p
	}
	close(jobs)

	wg.Wait()
	close(results)

	partitions := make([][]bigram.Output, opts.Reducers)
	errs := make([]error, 0)
	var counters Counters
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		partitions[res.partition] = res.outputs
		counters.add(res.counters)
	}
	if err := firstError(errs); err != nil {
		return nil, Counters{}, err
	}
	return partitions, counters, nil
}

// runReduceTask decodes partition p from every map output, groups stripes
// by key and reduces the keys in ascending order.
func runReduceTask(ctx context.Context, job Job, p int, mapOutputs []*mapOutput) ([]bigram.Output, Counters, error) {
	var counters Counters
	groups := make(map[string][]*stripe.Stripe)

	for _, mo := range mapOutputs {
		seg := mo.segments[p]
		for len(seg) > 0 {
			r, n, err := bigram.ConsumeRecord(seg)
			if err != nil {
				return nil, counters, fmt.Errorf("failed to decode map output: %w", err)
			}
			seg = seg[n:]
			groups[r.Key] = append(groups[r.Key], r.Stripe)
			counters.ReduceInputRecords++
		}
	}

	var outputs []bigram.Output
	for i, key := range slices.Sorted(maps.Keys(groups)) {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, counters, err
			}
		}
		counters.ReduceInputGroups++
		err := job.Reduce(key, slices.Values(groups[key]), func(o bigram.Output) {
			outputs = append(outputs, o)
		})
		if err != nil {
			return nil, counters, err
		}
	}
	counters.ReduceOutputRecords = int64(len(outputs))
	return outputs, counters, nil
}
