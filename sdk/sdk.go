// Package sdk is the guest-side toolkit for writing plugins. A plugin
// declares an AppDef with client and server state factories, registers
// systems against the host-driven schedule, and exchanges components and
// messages through an EngineIo handed to each system invocation.
package sdk

import "github.com/fzracing/fz/wire"

// Version is the SDK version reported in plugin manifests. The host may
// refuse plugins built against an incompatible major version.
const Version = "1.0.0"

// Component is a typed component body. ComponentID returns the namespaced
// identifier the host stores it under, e.g. "engine.transform".
type Component interface {
	ComponentID() string
}

// Message is a typed message body. Locality is the default destination
// used by EngineIo.Send.
type Message interface {
	MessageID() string
	Locality() wire.DestinationKind
}

// Reads declares read access to a component type within a query.
func Reads(c Component) wire.QueryTerm {
	return wire.QueryTerm{Component: c.ComponentID(), Access: wire.AccessRead}
}

// Writes declares write access to a component type within a query.
func Writes(c Component) wire.QueryTerm {
	return wire.QueryTerm{Component: c.ComponentID(), Access: wire.AccessWrite}
}
