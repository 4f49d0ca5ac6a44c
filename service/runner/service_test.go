package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgate/flowgate/model/definition"
	"github.com/flowgate/flowgate/model/instance"
	"github.com/flowgate/flowgate/model/job"
	"github.com/flowgate/flowgate/service/action"
	"github.com/flowgate/flowgate/service/dao"
	defmemory "github.com/flowgate/flowgate/service/dao/definition/memory"
	imemory "github.com/flowgate/flowgate/service/dao/instance/memory"
	tmemory "github.com/flowgate/flowgate/service/dao/ticket/memory"
	"github.com/flowgate/flowgate/service/engine"
	"github.com/flowgate/flowgate/service/event"
	"github.com/flowgate/flowgate/service/loader"
	"github.com/flowgate/flowgate/service/lock"
	qmemory "github.com/flowgate/flowgate/service/messaging/memory"
)

type fakeEngine struct {
	advanceErr  error
	advanceRuns int
}

func (e *fakeEngine) LoadInstance(context.Context, *instance.ProcessInstance) error { return nil }

func (e *fakeEngine) RunToNextState(context.Context) error {
	e.advanceRuns++
	return e.advanceErr
}

type fakeFactory struct {
	advanceErr error
	last       *fakeEngine
}

func (f *fakeFactory) New(*definition.Definitions, bool) (engine.Engine, error) {
	f.last = &fakeEngine{advanceErr: f.advanceErr}
	return f.last, nil
}

type fixture struct {
	service   *Service
	tickets   *tmemory.Service
	instances *imemory.Service
	factory   *fakeFactory
	events    *qmemory.Queue[event.Event]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tickets:   tmemory.New(),
		instances: imemory.New(),
		factory:   &fakeFactory{},
		events:    qmemory.NewQueue[event.Event](qmemory.DefaultConfig()),
	}
	definitions := defmemory.New()
	definitions.Upsert(&definition.Definitions{
		ID: "order",
		Processes: []*definition.Process{
			{ID: "main", Elements: []*definition.Element{{ID: "confirm", Type: "serviceTask"}}},
		},
	})

	config := lock.Config{Timeout: 100 * time.Millisecond, PollInterval: 5 * time.Millisecond, Enabled: true}
	locks := lock.New(f.tickets, config, lock.WithExistenceProbe(func(ctx context.Context, id string) (bool, error) {
		_, err := f.instances.Find(ctx, id)
		if errors.Is(err, dao.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}))
	contextLoader := loader.New(f.instances, definitions, f.factory)
	f.service = New(locks, contextLoader, f.instances, WithEventService(event.New(f.events)))
	return f
}

func (f *fixture) saveInstance(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.instances.Save(context.Background(), &instance.ProcessInstance{
		ID:            id,
		DefinitionsID: "order",
		Status:        instance.StatusActive,
		Tokens:        []*instance.Token{{ID: "t1", ElementID: "confirm", Status: instance.TokenStatusActive}},
	}))
}

func TestService_HandleCompletes(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1", TokenID: "t1"}, action.Func(
		func(ctx context.Context, ec *loader.Context) (interface{}, error) {
			assert.Equal(t, "i1", ec.Instance.ID)
			return "done", nil
		}))

	assert.True(t, out.Completed())
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "done", out.Result)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, f.factory.last.advanceRuns)
	assert.Equal(t, 0, f.tickets.Size(), "lock must be released")
	assert.Equal(t, 2, f.events.Size(), "lockAcquired and actionCompleted")
}

func TestService_HandleActionFailure(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1", TokenID: "t1"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			return nil, errors.New("payment rejected")
		}))

	assert.Equal(t, StatusActionFailed, out.Status)
	assert.False(t, out.Retryable())
	assert.Equal(t, 0, f.tickets.Size(), "lock must be released on failure")

	found, err := f.instances.Find(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusError, found.Status)
	assert.Equal(t, "payment rejected", found.ErrorMessage)
	assert.Equal(t, "confirm", found.ErrorElementID)
}

func TestService_HandleAdvanceFailure(t *testing.T) {
	f := newFixture(t)
	f.factory.advanceErr = errors.New("no enabled transition")
	f.saveInstance(t, "i1")
	ctx := context.Background()

	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			return "ran", nil
		}))

	assert.Equal(t, StatusAdvanceFailed, out.Status)
	assert.Equal(t, 0, f.tickets.Size())

	found, err := f.instances.Find(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusError, found.Status)
	assert.Equal(t, "no enabled transition", found.ErrorMessage)
}

func TestService_HandleLoadFailure(t *testing.T) {
	f := newFixture(t)
	// instance exists but points at definitions nobody registered
	require.NoError(t, f.instances.Save(context.Background(), &instance.ProcessInstance{
		ID: "i1", DefinitionsID: "ghost", Status: instance.StatusActive,
	}))
	ctx := context.Background()

	executed := false
	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			executed = true
			return nil, nil
		}))

	assert.Equal(t, StatusLoadFailed, out.Status)
	assert.False(t, executed, "action must not run when loading fails")
	assert.Equal(t, 0, f.tickets.Size())

	found, err := f.instances.Find(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusError, found.Status)
}

func TestService_HandlePanicRecovered(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1", TokenID: "t1"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			panic("boom")
		}))

	assert.Equal(t, StatusActionFailed, out.Status)
	assert.ErrorContains(t, out.Err, "boom")
	assert.Equal(t, 0, f.tickets.Size(), "lock must be released after a panic")

	found, err := f.instances.Find(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusError, found.Status)
}

func TestService_HandleLockTimeout(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	// another worker holds the group with a lease that outlives the test
	holder, err := f.tickets.Create(ctx, "other", "", []string{"i1"})
	require.NoError(t, err)
	require.NoError(t, f.tickets.Activate(ctx, holder.ID, time.Now().Add(time.Minute)))

	executed := false
	out := f.service.Handle(ctx, &job.Job{InstanceID: "i1"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			executed = true
			return nil, nil
		}))

	assert.Equal(t, StatusLockTimeout, out.Status)
	assert.True(t, out.Retryable())
	assert.False(t, executed, "action must not run without the lock")

	// target untouched and holder's ticket still there
	found, err := f.instances.Find(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusActive, found.Status)
	assert.Equal(t, 1, f.tickets.Size())
}

func TestService_HandleTargetVanished(t *testing.T) {
	f := newFixture(t)

	out := f.service.Handle(context.Background(), &job.Job{InstanceID: "ghost"}, action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			return nil, nil
		}))

	assert.Equal(t, StatusTargetVanished, out.Status)
	assert.False(t, out.Retryable())
}

func TestService_HandleRecordsOnCreatedInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a start-new-process action: the job names no instance, the action
	// creates one and then the advance phase fails
	f.factory.advanceErr = errors.New("start event missing")
	out := f.service.Handle(ctx, &job.Job{DefinitionsID: "order"}, action.Func(
		func(ctx context.Context, ec *loader.Context) (interface{}, error) {
			created := &instance.ProcessInstance{ID: "new-1", DefinitionsID: "order", Status: instance.StatusActive}
			if err := f.instances.Save(ctx, created); err != nil {
				return nil, err
			}
			return created, nil
		}))

	assert.Equal(t, StatusAdvanceFailed, out.Status)
	found, err := f.instances.Find(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusError, found.Status)
	assert.Equal(t, "start event missing", found.ErrorMessage)
}

func TestService_WithContext(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")

	var seen string
	err := f.service.WithContext(context.Background(), &job.Job{InstanceID: "i1"},
		func(_ context.Context, ec *loader.Context) error {
			seen = ec.Instance.ID
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "i1", seen)
	assert.Equal(t, 0, f.tickets.Size(), "no lock is taken")
}

func TestService_HandleUnblockedByUndrainedEvents(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	// swap in the default (drop-when-full) event service; nothing consumes
	// it, so only the drop policy keeps publication from stalling Handle
	// while the group lock is held
	f.service.events = event.New(nil)

	for i := 0; i < 80; i++ {
		out := f.service.Handle(ctx, &job.Job{InstanceID: "i1"}, action.Func(
			func(context.Context, *loader.Context) (interface{}, error) {
				return nil, nil
			}))
		require.True(t, out.Completed(), "invocation %d: %+v", i, out)
	}
	assert.Equal(t, 0, f.tickets.Size())
}

func TestService_SequentialJobsSameGroup(t *testing.T) {
	f := newFixture(t)
	f.saveInstance(t, "i1")
	ctx := context.Background()

	run := func() Outcome {
		return f.service.Handle(ctx, &job.Job{InstanceID: "i1"}, action.Func(
			func(context.Context, *loader.Context) (interface{}, error) {
				return nil, nil
			}))
	}
	assert.True(t, run().Completed())
	assert.True(t, run().Completed(), "released lock must be reacquirable")
	assert.Equal(t, 0, f.tickets.Size())
}
