// Package flowgate provides the concurrency-control core of a long-running
// workflow engine: many independently-scheduled workers may each advance a
// step of a running process instance, while no two workers ever mutate the
// same instance - or any instance collaborating with it - at the same time.
//
// Exclusivity is built on a persisted, append-ordered table of lock tickets
// (a bakery-style group lock, see service/lock), and every dispatched action
// runs inside a lifecycle that loads its execution context under lock,
// invokes the action, advances the external state machine and releases the
// lock on every path (see service/runner).
//
// End-users typically interact through the Service façade exposed by this
// package:
//
//	srv, _ := flowgate.New(flowgate.WithEngineFactory(factory))
//	srv.Start(ctx)
//	out := srv.Execute(ctx, &job.Job{InstanceID: "order-17"}, myAction)
//
// The workflow state machine itself, definition parsing and job transport
// are external collaborators consumed through the interfaces under
// service/engine, service/dao and service/messaging.
package flowgate
