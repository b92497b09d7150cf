package sinks

import (
	"io"

	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/listener_registry"
)

// Sink is a listener that carries stats events somewhere outside the process.
type Sink interface {
	listener_registry.Listener
	io.Closer
	Name() string
}

func contentType(f commtypes.SerdeFormat) string {
	switch f {
	case commtypes.MSGP:
		return "application/x-msgpack"
	default:
		return "application/json"
	}
}
