// Package loader resolves the live objects one lifecycle invocation needs:
// the target instance with its collaborators pre-loaded into a fresh engine,
// the owning definitions and the token/element execution position.
package loader

import (
	"context"
	"fmt"

	"github.com/flowgate/flowgate/model/job"
	ddefinition "github.com/flowgate/flowgate/service/dao/definition"
	dinstance "github.com/flowgate/flowgate/service/dao/instance"
	"github.com/flowgate/flowgate/service/engine"
)

// Service loads execution contexts for action jobs.
type Service struct {
	instances   dinstance.Repository
	definitions ddefinition.Loader
	engines     engine.Factory
}

// New creates a context loader.
func New(instances dinstance.Repository, definitions ddefinition.Loader, engines engine.Factory) *Service {
	return &Service{instances: instances, definitions: definitions, engines: engines}
}

// Load resolves the execution context for j. The returned bundle must not
// outlive the invocation it was built for.
func (s *Service) Load(ctx context.Context, j *job.Job) (*Context, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	ec := &Context{Data: j.Data}

	definitionsID := j.DefinitionsID
	if j.InstanceID != "" {
		inst, err := s.instances.Find(ctx, j.InstanceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load instance %s: %w", j.InstanceID, err)
		}
		ec.Instance = inst
		definitionsID = inst.DefinitionsID
	}

	defs, err := s.definitions.Load(ctx, definitionsID)
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions %s: %w", definitionsID, err)
	}
	ec.Definitions = defs

	eng, err := s.engines.New(defs, !j.DisableGlobalEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to construct engine: %w", err)
	}
	ec.Engine = eng

	if ec.Instance != nil {
		if err := s.register(ctx, ec); err != nil {
			return nil, err
		}
	}

	if j.ProcessID != "" {
		ec.SubProcess = defs.Process(j.ProcessID)
		if ec.SubProcess == nil {
			return nil, fmt.Errorf("process %s not found in definitions %s", j.ProcessID, defs.ID)
		}
	}
	ec.ProcessModel = ec.SubProcess
	if ec.ProcessModel == nil && len(defs.Processes) > 0 {
		ec.ProcessModel = defs.Processes[0]
	}

	s.resolvePosition(ec, j)
	return ec, nil
}

// register hydrates the target instance and every collaborator into the
// freshly constructed engine.
func (s *Service) register(ctx context.Context, ec *Context) error {
	if err := ec.Engine.LoadInstance(ctx, ec.Instance); err != nil {
		return fmt.Errorf("failed to register instance %s: %w", ec.Instance.ID, err)
	}
	collaborators, err := s.instances.Collaborators(ctx, ec.Instance)
	if err != nil {
		return fmt.Errorf("failed to resolve collaborators of %s: %w", ec.Instance.ID, err)
	}
	for _, sibling := range collaborators {
		if err := ec.Engine.LoadInstance(ctx, sibling); err != nil {
			return fmt.Errorf("failed to register collaborator %s: %w", sibling.ID, err)
		}
	}
	ec.Collaborators = collaborators
	return nil
}

// resolvePosition resolves the token/element pair. A token id is matched by
// a linear scan over the instance's live tokens with early exit on the
// first structural match; an element id resolves directly. A miss on either
// is not an error - both simply remain unset.
func (s *Service) resolvePosition(ec *Context, j *job.Job) {
	if j.TokenID != "" && ec.Instance != nil {
		if token := ec.Instance.Token(j.TokenID); token != nil {
			ec.Token = token
			ec.Element = ec.Definitions.Element(token.ElementID)
		}
		return
	}
	if j.ElementID != "" {
		ec.Element = ec.Definitions.Element(j.ElementID)
	}
}

// ResourceGroup computes the set of instance ids that must be locked
// together for j: the target instance plus every instance of its
// collaboration, computed fresh from current membership. Empty when the job
// has no target instance.
func (s *Service) ResourceGroup(ctx context.Context, j *job.Job) ([]string, error) {
	if j.InstanceID == "" {
		return nil, nil
	}
	inst, err := s.instances.Find(ctx, j.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance %s: %w", j.InstanceID, err)
	}
	group := []string{inst.ID}
	collaborators, err := s.instances.Collaborators(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collaborators of %s: %w", inst.ID, err)
	}
	for _, sibling := range collaborators {
		group = append(group, sibling.ID)
	}
	return group, nil
}

// Instances exposes the backing repository so that callers sharing the
// loader do not need separate wiring for existence probes.
func (s *Service) Instances() dinstance.Repository { return s.instances }
