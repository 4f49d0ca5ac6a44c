package flowgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowgate/flowgate/model/job"
	"github.com/flowgate/flowgate/service/action"
	"github.com/flowgate/flowgate/service/dao"
	ddefinition "github.com/flowgate/flowgate/service/dao/definition"
	defmemory "github.com/flowgate/flowgate/service/dao/definition/memory"
	dinstance "github.com/flowgate/flowgate/service/dao/instance"
	imemory "github.com/flowgate/flowgate/service/dao/instance/memory"
	"github.com/flowgate/flowgate/service/dao/ticket"
	tmemory "github.com/flowgate/flowgate/service/dao/ticket/memory"
	"github.com/flowgate/flowgate/service/engine"
	"github.com/flowgate/flowgate/service/event"
	"github.com/flowgate/flowgate/service/loader"
	"github.com/flowgate/flowgate/service/lock"
	"github.com/flowgate/flowgate/service/messaging"
	qmemory "github.com/flowgate/flowgate/service/messaging/memory"
	"github.com/flowgate/flowgate/service/runner"
	"github.com/flowgate/flowgate/service/worker"
)

// Service wires the concurrency core together: ticket store, lock manager,
// context loader, lifecycle runner and the dispatch worker pool. In-memory
// implementations back every pluggable collaborator by default; production
// hosts substitute their own via options.
type Service struct {
	config *Config

	tickets     ticket.Store
	instances   dinstance.Repository
	definitions ddefinition.Loader
	engines     engine.Factory
	queue       messaging.Queue[job.Job]
	events      *event.Service

	registry *action.Registry
	locks    *lock.Manager
	loader   *loader.Service
	runner   *runner.Service
	pool     *worker.Service
}

// New creates a fully wired Service. An engine factory is required; every
// other collaborator has an in-memory default.
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig(), registry: action.NewRegistry()}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.engines == nil {
		return fmt.Errorf("engine factory is required")
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.ensureBaseSetup()

	s.loader = loader.New(s.instances, s.definitions, s.engines)
	s.locks = lock.New(s.tickets, s.config.Lock, lock.WithExistenceProbe(s.instanceExists))
	s.runner = runner.New(s.locks, s.loader, s.instances, runner.WithEventService(s.events))

	pool, err := worker.New(s.queue, s.runner, s.registry, s.config.Worker)
	if err != nil {
		return err
	}
	s.pool = pool
	return nil
}

func (s *Service) ensureBaseSetup() {
	if s.tickets == nil {
		s.tickets = tmemory.New()
	}
	if s.instances == nil {
		s.instances = imemory.New()
	}
	if s.definitions == nil {
		s.definitions = defmemory.New()
	}
	if s.queue == nil {
		s.queue = qmemory.NewQueue[job.Job](qmemory.DefaultConfig())
	}
}

// instanceExists adapts the repository to the lock manager's probe. It goes
// through the loader so the probe always observes the repository the loader
// resolves instances from.
func (s *Service) instanceExists(ctx context.Context, id string) (bool, error) {
	_, err := s.loader.Instances().Find(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RegisterAction binds a named action for queue-dispatched jobs.
func (s *Service) RegisterAction(name string, a action.Action) {
	s.registry.Register(name, a)
}

// Dispatch publishes a job onto the shared queue for the worker pool.
func (s *Service) Dispatch(ctx context.Context, j *job.Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	return s.queue.Publish(ctx, j)
}

// Execute runs a single job synchronously through the full lifecycle.
func (s *Service) Execute(ctx context.Context, j *job.Job, a action.Action) runner.Outcome {
	return s.runner.Handle(ctx, j, a)
}

// WithContext loads a fresh execution context for j and invokes fn against
// it, without locking or advancing the state machine.
func (s *Service) WithContext(ctx context.Context, j *job.Job, fn func(ctx context.Context, ec *loader.Context) error) error {
	return s.runner.WithContext(ctx, j, fn)
}

// Start launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	return s.pool.Start(ctx)
}

// Shutdown stops the worker pool, waiting for in-flight jobs.
func (s *Service) Shutdown() {
	s.pool.Shutdown()
}

// Runner exposes the lifecycle runner.
func (s *Service) Runner() *runner.Service { return s.runner }

// Locks exposes the lock manager.
func (s *Service) Locks() *lock.Manager { return s.locks }

// Loader exposes the context loader.
func (s *Service) Loader() *loader.Service { return s.loader }
