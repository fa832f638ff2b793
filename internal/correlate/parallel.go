package correlate

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/regsnp/internal/config"
)

// WorkItem holds a task and its position in the input.
type WorkItem struct {
	Seq  int
	Task Task
}

// WorkResult holds the computed record for a single task.
type WorkResult struct {
	Seq    int
	Record Record
}

// Engine computes correlation tasks with a fixed method and sample
// threshold.
type Engine struct {
	Method     config.Method
	MinSamples int
	Workers    int
}

// NewEngine creates an engine from the run configuration.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{Method: cfg.Method, MinSamples: cfg.MinSamples, Workers: cfg.Workers}
}

// Compute runs one task.
func (e *Engine) Compute(t Task) Record {
	res := Undefined(0)
	if len(t.X.Samples) > 0 && len(t.Y.Samples) > 0 {
		res = Pairwise(t.X, t.Y, e.Method, e.MinSamples)
	}
	return Record{Kind: t.Kind, SNP: t.SNP, Region: t.Region, Gene: t.Gene, Feature: t.Feature, Result: res}
}

// ParallelCompute computes work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (e *Engine) ParallelCompute(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{Seq: item.Seq, Record: e.Compute(item.Task)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// Run computes all tasks and returns the records in task order.
func (e *Engine) Run(ctx context.Context, tasks []Task) ([]Record, error) {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, t := range tasks {
			select {
			case items <- WorkItem{Seq: i, Task: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	records := make([]Record, 0, len(tasks))
	err := OrderedCollect(e.ParallelCompute(items, e.Workers), func(r WorkResult) error {
		records = append(records, r.Record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
