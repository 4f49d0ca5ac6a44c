// Package worker pulls action jobs off a shared queue and feeds them
// through the lifecycle runner. Delivery guarantees stay with the queue:
// the pool only decides whether a handled job is Acked or Nacked back for
// transport-level redelivery.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/flowgate/flowgate/model/job"
	"github.com/flowgate/flowgate/service/action"
	"github.com/flowgate/flowgate/service/messaging"
	"github.com/flowgate/flowgate/service/runner"
)

// Config represents worker pool configuration.
type Config struct {
	// WorkerCount is the number of workers consuming jobs.
	WorkerCount int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{WorkerCount: 5}
}

// Service consumes jobs and dispatches them to registered actions.
type Service struct {
	config   Config
	queue    messaging.Queue[job.Job]
	runner   *runner.Service
	registry *action.Registry

	workers  []*worker
	workerWg sync.WaitGroup
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a worker pool.
func New(queue messaging.Queue[job.Job], lifecycle *runner.Service, registry *action.Registry, config Config) (*Service, error) {
	if queue == nil {
		return nil, fmt.Errorf("job queue is required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle runner is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("action registry is required")
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Service{config: config, queue: queue, runner: lifecycle, registry: registry}, nil
}

// Start launches the worker goroutines.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Shutdown stops all workers and waits for in-flight jobs to finish.
func (s *Service) Shutdown() {
	for _, w := range s.workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

// run processes messages from the queue until the worker context ends.
func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			// The worker's own context ending (cancelled or past its
			// deadline) is the exit condition, not a queue fault.
			if w.ctx.Err() != nil {
				return
			}
			// Transient queue error; back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			log.Printf("worker %d: failed to process message: %v", w.id, pErr)
		}
	}
}

// processMessage handles a single dispatched job. Only a lock timeout is
// Nacked - everything else, including recorded action failures, completes
// the message because the durable error record on the instance is the
// source of truth.
func (s *Service) processMessage(ctx context.Context, msg messaging.Message[job.Job]) error {
	j := msg.T()
	if err := j.Validate(); err != nil {
		return msg.Nack(err)
	}
	act, err := s.registry.Lookup(j.Action)
	if err != nil {
		return msg.Nack(err)
	}
	out := s.runner.Handle(ctx, j, act)
	if out.Retryable() {
		return msg.Nack(out.Err)
	}
	return msg.Ack()
}
