/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dispatcher.go
Description: Worker pool that runs structure finding calls off the caller's goroutine.
A fixed set of workers pulls jobs from a queue; Submit waits for the result, the
caller's context or the call deadline, whichever comes first, and late results are
discarded. Call outcomes are counted atomically.
*/

package finder

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/sirupsen/logrus"
)

// Stats counts dispatcher outcomes
type Stats struct {
	Workers   int   `json:"workers"`
	Calls     int64 `json:"calls"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
}

type result struct {
	desc *structure.Description
	err  error
}

type job struct {
	req    Request
	result chan result // Buffered so a worker never blocks on an abandoned job
}

// worker tracks one pool goroutine
type worker struct {
	id         int
	executions int64
}

// Dispatcher runs FindStructure calls on a fixed pool of workers
type Dispatcher struct {
	finder  *Finder
	log     logrus.FieldLogger
	workers []*worker
	jobs    chan job

	calls     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64

	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher starts workers goroutines serving f. workers <= 0 uses one per CPU;
// a nil logger uses the finder's logger.
func NewDispatcher(f *Finder, workers int, logger logrus.FieldLogger) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = f.log
	}

	d := &Dispatcher{
		finder:  f,
		log:     logger,
		workers: make([]*worker, workers),
		jobs:    make(chan job, workers),
		quit:    make(chan struct{}),
	}
	for i := range d.workers {
		w := &worker{id: i}
		d.workers[i] = w
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(w)
		}()
	}
	d.log.WithField("workers", workers).Debug("Dispatcher started")
	return d
}

// runWorker serves jobs until the dispatcher closes
func (d *Dispatcher) runWorker(w *worker) {
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.jobs:
			desc, err := d.finder.FindStructure(j.req)
			atomic.AddInt64(&w.executions, 1)
			j.result <- result{desc: desc, err: err}
		}
	}
}

// Submit runs req on the pool and waits for its outcome. A timeout <= 0 uses the
// configured default. When the deadline passes first the call fails with Timeout and
// the late result is discarded.
func (d *Dispatcher) Submit(ctx context.Context, req Request, timeout time.Duration) (*structure.Description, error) {
	d.calls.Add(1)

	select {
	case <-d.quit:
		d.failed.Add(1)
		return nil, structure.NewError(structure.KindInvalidRequest, "dispatcher is closed")
	default:
	}

	if timeout <= 0 {
		timeout = d.finder.cfg.Defaults.Timeout
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	deadline := time.Now().Add(timeout)
	if req.Deadline.IsZero() || req.Deadline.After(deadline) {
		req.Deadline = deadline
	}
	ctx, cancel := context.WithDeadline(ctx, req.Deadline)
	defer cancel()
	if ctx.Err() != nil {
		return nil, d.expired(ctx, req.ID, timeout)
	}

	j := job{req: req, result: make(chan result, 1)}
	select {
	case d.jobs <- j:
	case <-ctx.Done():
		return nil, d.expired(ctx, req.ID, timeout)
	case <-d.quit:
		d.failed.Add(1)
		return nil, structure.NewError(structure.KindInvalidRequest, "dispatcher is closed")
	}

	select {
	case res := <-j.result:
		d.record(res.err)
		return res.desc, res.err
	case <-ctx.Done():
		return nil, d.expired(ctx, req.ID, timeout)
	case <-d.quit:
		d.failed.Add(1)
		return nil, structure.NewError(structure.KindInvalidRequest, "dispatcher closed while the call was pending")
	}
}

// expired classifies a context that ended before the result arrived
func (d *Dispatcher) expired(ctx context.Context, requestID string, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		d.failed.Add(1)
		return errors.Wrap(ctx.Err(), "structure finding cancelled")
	}
	d.timedOut.Add(1)
	d.log.WithFields(logrus.Fields{"request_id": requestID, "timeout": timeout}).Warn("Dispatcher call timed out")
	return structure.NewErrorWithHint(structure.KindTimeout,
		"raise --timeout or sample fewer lines",
		"structure finding did not finish within %s", timeout)
}

func (d *Dispatcher) record(err error) {
	switch {
	case err == nil:
		d.succeeded.Add(1)
	case structure.KindOf(err) == structure.KindTimeout:
		d.timedOut.Add(1)
	default:
		d.failed.Add(1)
	}
}

// Stats returns a snapshot of the outcome counters
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Workers:   len(d.workers),
		Calls:     d.calls.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		TimedOut:  d.timedOut.Load(),
	}
}

// WorkerExecutions returns the number of calls each worker has run
func (d *Dispatcher) WorkerExecutions() []int64 {
	out := make([]int64, len(d.workers))
	for i, w := range d.workers {
		out[i] = atomic.LoadInt64(&w.executions)
	}
	return out
}

// Close stops the workers and waits for in-flight calls to finish
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.wg.Wait()
		s := d.Stats()
		d.log.WithFields(logrus.Fields{
			"calls":     s.Calls,
			"succeeded": s.Succeeded,
			"failed":    s.Failed,
			"timed_out": s.TimedOut,
		}).Debug("Dispatcher stopped")
	})
}
