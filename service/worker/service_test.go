package worker

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
	defmemory "github.com/flowgate/flowgate/service/dao/definition/memory"
	imemory "github.com/flowgate/flowgate/service/dao/instance/memory"
	tmemory "github.com/flowgate/flowgate/service/dao/ticket/memory"
	"github.com/flowgate/flowgate/service/engine"
	"github.com/flowgate/flowgate/service/loader"
	"github.com/flowgate/flowgate/service/lock"
	qmemory "github.com/flowgate/flowgate/service/messaging/memory"
	"github.com/flowgate/flowgate/service/runner"
)

type idleEngine struct{}

func (idleEngine) LoadInstance(context.Context, *instance.ProcessInstance) error { return nil }
func (idleEngine) RunToNextState(context.Context) error                          { return nil }

func newRunner(t *testing.T, instances *imemory.Service, tickets *tmemory.Service) *runner.Service {
	t.Helper()
	definitions := defmemory.New()
	definitions.Upsert(&definition.Definitions{
		ID:        "order",
		Processes: []*definition.Process{{ID: "main"}},
	})
	factory := engine.FactoryFunc(func(*definition.Definitions, bool) (engine.Engine, error) {
		return idleEngine{}, nil
	})
	config := lock.Config{Timeout: 100 * time.Millisecond, PollInterval: 5 * time.Millisecond, Enabled: true}
	return runner.New(lock.New(tickets, config), loader.New(instances, definitions, factory), instances)
}

func newPool(t *testing.T, registry *action.Registry) (*Service, *qmemory.Queue[job.Job], *imemory.Service) {
	t.Helper()
	instances := imemory.New()
	tickets := tmemory.New()
	queue := qmemory.NewQueue[job.Job](qmemory.Config{MaxRetries: 1, RetryDelay: 5 * time.Millisecond, DeadLetter: true, QueueBuffer: 16})
	pool, err := New(queue, newRunner(t, instances, tickets), registry, Config{WorkerCount: 2})
	require.NoError(t, err)
	return pool, queue, instances
}

func TestNew_Validation(t *testing.T) {
	registry := action.NewRegistry()
	instances := imemory.New()
	lifecycle := newRunner(t, instances, tmemory.New())
	queue := qmemory.NewQueue[job.Job](qmemory.DefaultConfig())

	_, err := New(nil, lifecycle, registry, Config{})
	assert.Error(t, err)
	_, err = New(queue, nil, registry, Config{})
	assert.Error(t, err)
	_, err = New(queue, lifecycle, nil, Config{})
	assert.Error(t, err)

	pool, err := New(queue, lifecycle, registry, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().WorkerCount, pool.config.WorkerCount)
}

func TestService_ProcessesDispatchedJob(t *testing.T) {
	registry := action.NewRegistry()
	done := make(chan string, 1)
	registry.Register("confirmOrder", action.Func(
		func(_ context.Context, ec *loader.Context) (interface{}, error) {
			done <- ec.Instance.ID
			return nil, nil
		}))

	pool, queue, instances := newPool(t, registry)
	ctx := context.Background()
	require.NoError(t, instances.Save(ctx, &instance.ProcessInstance{ID: "i1", DefinitionsID: "order"}))

	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown()

	require.NoError(t, queue.Publish(ctx, &job.Job{InstanceID: "i1", Action: "confirmOrder"}))

	select {
	case id := <-done:
		assert.Equal(t, "i1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never handled")
	}
}

func TestService_NacksUnknownAction(t *testing.T) {
	pool, queue, instances := newPool(t, action.NewRegistry())
	ctx := context.Background()
	require.NoError(t, instances.Save(ctx, &instance.ProcessInstance{ID: "i1", DefinitionsID: "order"}))

	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown()

	require.NoError(t, queue.Publish(ctx, &job.Job{InstanceID: "i1", Action: "ghost"}))

	// one retry budget, then dead-lettered
	assert.Eventually(t, func() bool { return queue.DLQSize() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestService_AcksRecordedActionFailure(t *testing.T) {
	registry := action.NewRegistry()
	calls := make(chan struct{}, 8)
	registry.Register("alwaysFails", action.Func(
		func(context.Context, *loader.Context) (interface{}, error) {
			calls <- struct{}{}
			return nil, errors.New("boom")
		}))

	pool, queue, instances := newPool(t, registry)
	ctx := context.Background()
	require.NoError(t, instances.Save(ctx, &instance.ProcessInstance{ID: "i1", DefinitionsID: "order"}))

	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown()

	require.NoError(t, queue.Publish(ctx, &job.Job{InstanceID: "i1", Action: "alwaysFails"}))

	// failure is recorded on the instance and the message completes
	assert.Eventually(t, func() bool {
		found, err := instances.Find(ctx, "i1")
		return err == nil && found.Status == instance.StatusError
	}, 2*time.Second, 10*time.Millisecond)

	<-calls
	select {
	case <-calls:
		t.Fatal("recorded failure must not be redelivered")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Zero(t, queue.DLQSize())
}

func TestService_ShutdownAfterStartDeadline(t *testing.T) {
	pool, _, _ := newPool(t, action.NewRegistry())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	// let the start context's deadline fire before shutting down
	time.Sleep(50 * time.Millisecond)

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hung after the start context expired")
	}
}

func TestService_Shutdown(t *testing.T) {
	pool, _, _ := newPool(t, action.NewRegistry())
	require.NoError(t, pool.Start(context.Background()))

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not drain workers")
	}
}
