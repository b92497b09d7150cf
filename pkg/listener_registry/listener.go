package listener_registry

import "igmp-stats/pkg/commtypes"

// Listener receives every published StatsEvent. The event is a value copy;
// listeners own it and must not expect anyone else to see changes to it.
// Returning an error or panicking only affects this listener's delivery.
type Listener interface {
	OnStatsEvent(ev commtypes.StatsEvent) error
}

// ListenerFunc adapts a function to Listener. Functions are not comparable, so
// registering the same ListenerFunc twice yields two registrations; remove
// them with UnregisterID.
type ListenerFunc func(ev commtypes.StatsEvent) error

func (f ListenerFunc) OnStatsEvent(ev commtypes.StatsEvent) error {
	return f(ev)
}

type ListenerID uint64
