package sdk

import (
	"fmt"

	"github.com/fzracing/fz/wire"
)

// SystemBuilder declaratively wires one system into the host schedule.
type SystemBuilder struct {
	app  *App
	fn   SystemFunc
	spec wire.SystemSpec
}

// AddSystem starts registering a system. Build must be called to commit.
func (a *App) AddSystem(name string, fn SystemFunc) *SystemBuilder {
	return &SystemBuilder{
		app: a,
		fn:  fn,
		spec: wire.SystemSpec{
			Name:  name,
			Stage: wire.StageUpdate,
		},
	}
}

// Stage sets the execution stage; the default is update.
func (b *SystemBuilder) Stage(stage wire.Stage) *SystemBuilder {
	b.spec.Stage = stage
	return b
}

// Subscribe delivers messages of the given types to this system.
func (b *SystemBuilder) Subscribe(msgs ...Message) *SystemBuilder {
	for _, m := range msgs {
		b.spec.Subscriptions = append(b.spec.Subscriptions, m.MessageID())
	}
	return b
}

// Query declares a named intersection query over the given terms. Rows
// for every entity carrying all the terms arrive with each dispatch.
func (b *SystemBuilder) Query(name string, terms ...wire.QueryTerm) *SystemBuilder {
	b.spec.Queries = append(b.spec.Queries, wire.QuerySpec{Name: name, Terms: terms})
	return b
}

// Build commits the system. Duplicate names panic: registration happens
// during init where panics surface as structured errors.
func (b *SystemBuilder) Build() {
	if _, exists := b.app.systems[b.spec.Name]; exists {
		panic(fmt.Sprintf("duplicate system name %q", b.spec.Name))
	}
	b.app.systems[b.spec.Name] = b.fn
	b.app.specs = append(b.app.specs, b.spec)
}
