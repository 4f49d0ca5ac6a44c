// Package runner orchestrates the lifecycle of one dispatched action:
// acquire group lock, load execution context, run the action, advance the
// engine to its next stable state, record failures against the affected
// request and release the lock on every path.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/flowgate/flowgate/model/instance"
	"github.com/flowgate/flowgate/model/job"
	"github.com/flowgate/flowgate/service/action"
	"github.com/flowgate/flowgate/service/dao"
	dinstance "github.com/flowgate/flowgate/service/dao/instance"
	"github.com/flowgate/flowgate/service/event"
	"github.com/flowgate/flowgate/service/loader"
	"github.com/flowgate/flowgate/service/lock"
	"github.com/flowgate/flowgate/tracing"
)

// Option customises the runner.
type Option func(*Service)

// WithEventService attaches a broadcast event publisher. Nil disables
// emission entirely.
func WithEventService(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// Service runs action lifecycles.
type Service struct {
	locks     *lock.Manager
	loader    *loader.Service
	instances dinstance.Repository
	events    *event.Service
}

// New creates a lifecycle runner.
func New(locks *lock.Manager, contextLoader *loader.Service, instances dinstance.Repository, options ...Option) *Service {
	s := &Service{locks: locks, loader: contextLoader, instances: instances}
	for _, option := range options {
		option(s)
	}
	return s
}

// Handle executes act against the job's target under group exclusivity.
// Every failure is captured into the returned outcome; the lock, when one
// was granted, is released before Handle returns regardless of which phase
// failed or panicked.
func (s *Service) Handle(ctx context.Context, j *job.Job, act action.Action) (out Outcome) {
	ctx, span := tracing.StartSpan(ctx, "runner.Handle")
	defer func() { tracing.EndSpan(span, out.Err) }()

	// Locking
	group, err := s.loader.ResourceGroup(ctx, j)
	if err != nil {
		return s.lockFailure(j, err)
	}
	handle, err := s.locks.Acquire(ctx, lock.Request{
		TargetID:     j.InstanceID,
		OwnerTokenID: j.TokenID,
		ResourceIDs:  group,
	})
	if err != nil {
		return s.lockFailure(j, err)
	}
	// Release must run on every exit, including cancellation of the
	// invocation context, hence WithoutCancel.
	defer func() {
		if rErr := s.locks.Release(context.WithoutCancel(ctx), handle); rErr != nil {
			log.Printf("runner: failed to release lock for job %v: %v", j.InstanceID, rErr)
		}
	}()

	var ec *loader.Context
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("action panicked: %v", r)
			out = s.fail(ctx, j, ec, nil, StatusActionFailed, err)
		}
	}()

	if handle.Held() {
		s.publish(ctx, j, event.TopicLockAcquired, nil)
	}

	// Loading
	ec, err = s.loader.Load(ctx, j)
	if err != nil {
		log.Printf("runner: failed to load context for job %v: %v", j.InstanceID, err)
		return s.fail(ctx, j, ec, nil, StatusLoadFailed, err)
	}

	// Running
	result, err := act.Execute(ctx, ec)
	if err != nil {
		return s.fail(ctx, j, ec, result, StatusActionFailed, err)
	}

	// Advancing: exhaust enabled transitions until the engine blocks on an
	// external event or completes. Errors here are treated exactly like
	// action errors.
	if err = ec.Engine.RunToNextState(ctx); err != nil {
		return s.fail(ctx, j, ec, result, StatusAdvanceFailed, err)
	}

	s.publish(ctx, j, event.TopicActionComplete, nil)
	return Outcome{Status: StatusCompleted, Result: result}
}

// WithContext re-runs the loading phase and invokes fn against the fresh
// context without entering the locking or advance/error machinery. Intended
// for read-mostly operations that need live objects but not the full
// mutating lifecycle.
func (s *Service) WithContext(ctx context.Context, j *job.Job, fn func(ctx context.Context, ec *loader.Context) error) error {
	ec, err := s.loader.Load(ctx, j)
	if err != nil {
		return err
	}
	return fn(ctx, ec)
}

// lockFailure classifies an acquisition error. The instance remains
// unlocked and untouched on this path.
func (s *Service) lockFailure(j *job.Job, err error) Outcome {
	switch {
	case errors.Is(err, lock.ErrTargetVanished), errors.Is(err, dao.ErrNotFound):
		log.Printf("runner: lock target %v vanished: %v", j.InstanceID, err)
		return Outcome{Status: StatusTargetVanished, Err: err}
	case errors.Is(err, lock.ErrTimeout):
		return Outcome{Status: StatusLockTimeout, Err: err}
	default:
		log.Printf("runner: lock acquisition for %v failed: %v", j.InstanceID, err)
		return Outcome{Status: StatusLockTimeout, Err: err}
	}
}

// fail records err against the affected request and folds it into an
// outcome. The affected request is the loaded instance when one exists;
// when the job started a new process the action's own result is expected to
// be the freshly created instance. Recording is best-effort and never masks
// the original failure.
func (s *Service) fail(ctx context.Context, j *job.Job, ec *loader.Context, result interface{}, status Status, err error) Outcome {
	affected := s.affectedRequest(j, ec, result)
	if affected != "" {
		elementID := ""
		if ec != nil && ec.Element != nil {
			elementID = ec.Element.ID
		}
		if rErr := s.instances.RecordError(ctx, affected, err.Error(), elementID); rErr != nil {
			log.Printf("runner: failed to record error on instance %s: %v (original: %v)", affected, rErr, err)
		}
	}
	s.publish(ctx, j, event.TopicActionFailed, map[string]string{"error": err.Error()})
	return Outcome{Status: status, Err: err}
}

// affectedRequest resolves which instance the failure belongs to: the
// loaded instance, the instance the job named when loading never got that
// far, or the action's own result for start-new-process actions.
func (s *Service) affectedRequest(j *job.Job, ec *loader.Context, result interface{}) string {
	if ec != nil && ec.Instance != nil {
		return ec.Instance.ID
	}
	if j.InstanceID != "" {
		return j.InstanceID
	}
	if created, ok := result.(*instance.ProcessInstance); ok && created != nil {
		return created.ID
	}
	return ""
}

// publish emits a broadcast event unless suppressed for this job.
func (s *Service) publish(ctx context.Context, j *job.Job, topic string, attributes map[string]string) {
	if s.events == nil || j.DisableGlobalEvents {
		return
	}
	e := &event.Event{Topic: topic, InstanceID: j.InstanceID, Attributes: attributes}
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("runner: failed to publish %s event: %v", topic, err)
	}
}
