package flowgate

import (
	"github.com/flowgate/flowgate/model/job"
	ddefinition "github.com/flowgate/flowgate/service/dao/definition"
	dinstance "github.com/flowgate/flowgate/service/dao/instance"
	"github.com/flowgate/flowgate/service/dao/ticket"
	"github.com/flowgate/flowgate/service/engine"
	"github.com/flowgate/flowgate/service/event"
	"github.com/flowgate/flowgate/service/lock"
	"github.com/flowgate/flowgate/service/messaging"
	"github.com/flowgate/flowgate/service/worker"
)

// Option customises the Service façade.
type Option func(*Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLockConfig overrides the lock section only.
func WithLockConfig(config lock.Config) Option {
	return func(s *Service) {
		s.config.Lock = config
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Worker = worker.Config{WorkerCount: count}
	}
}

// WithTicketStore substitutes the lock ticket store (e.g. the fs-backed or
// a SQL-backed implementation).
func WithTicketStore(store ticket.Store) Option {
	return func(s *Service) {
		s.tickets = store
	}
}

// WithInstanceRepository substitutes the process-instance repository.
func WithInstanceRepository(repository dinstance.Repository) Option {
	return func(s *Service) {
		s.instances = repository
	}
}

// WithDefinitionLoader substitutes the definitions loader.
func WithDefinitionLoader(definitions ddefinition.Loader) Option {
	return func(s *Service) {
		s.definitions = definitions
	}
}

// WithEngineFactory installs the state-machine engine factory. Required.
func WithEngineFactory(factory engine.Factory) Option {
	return func(s *Service) {
		s.engines = factory
	}
}

// WithJobQueue substitutes the dispatch queue.
func WithJobQueue(queue messaging.Queue[job.Job]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithEventService attaches a broadcast event publisher.
func WithEventService(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}
