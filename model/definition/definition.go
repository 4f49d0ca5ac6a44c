package definition

// Definitions is the parsed model of one process graph version, the unit
// the definition loader resolves by id. The core never interprets flow
// semantics - it only performs id-based lookups on behalf of the lifecycle.
type Definitions struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Version   int        `json:"version" yaml:"version"`
	Processes []*Process `json:"processes,omitempty" yaml:"processes,omitempty"`
	Elements  []*Element `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// Process is a sub-model within a definitions document (e.g. one pool of a
// collaboration).
type Process struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Elements []*Element `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// Element is a single flow node.
type Element struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Element returns the flow element with the given id, searching the
// top-level elements first and then every process sub-model.
func (d *Definitions) Element(id string) *Element {
	for _, element := range d.Elements {
		if element.ID == id {
			return element
		}
	}
	for _, process := range d.Processes {
		for _, element := range process.Elements {
			if element.ID == id {
				return element
			}
		}
	}
	return nil
}

// Process returns the process sub-model with the given id, nil when absent.
func (d *Definitions) Process(id string) *Process {
	for _, process := range d.Processes {
		if process.ID == id {
			return process
		}
	}
	return nil
}
