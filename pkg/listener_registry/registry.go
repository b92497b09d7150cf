package listener_registry

import (
	"reflect"
	"sync/atomic"

	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/xerrors"
)

// ListenerRegistry holds the registered listeners and dispatches events to
// them.
//
// Listeners live in a lock-free ordered map keyed by registration id, so
// Dispatch iterates without holding any lock while callbacks run. A listener
// registered or removed during a Dispatch is either delivered to exactly once
// or not at all. Writers take mu only to keep the identity check and the insert
// atomic.
type ListenerRegistry struct {
	mu        syncutils.Mutex
	nextID    atomic.Uint64
	listeners *skipmap.Uint64Map[Listener]
}

type DispatchResult struct {
	Delivered int
	Failed    int
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		listeners: skipmap.NewUint64[Listener](),
	}
}

// Register adds l and returns its id. Registering a listener that is already
// present (same comparable identity) returns the existing id. A nil listener
// is ignored and gets id 0.
func (r *ListenerRegistry) Register(l Listener) ListenerID {
	if l == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.find(l); ok {
		return id
	}
	id := r.nextID.Add(1)
	r.listeners.Store(id, l)
	return ListenerID(id)
}

// Unregister removes l if present and reports whether it was.
func (r *ListenerRegistry) Unregister(l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.find(l)
	if !ok {
		return false
	}
	return r.listeners.Delete(uint64(id))
}

func (r *ListenerRegistry) UnregisterID(id ListenerID) bool {
	return r.listeners.Delete(uint64(id))
}

func (r *ListenerRegistry) Len() int {
	return r.listeners.Len()
}

func (r *ListenerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners.Range(func(id uint64, _ Listener) bool {
		r.listeners.Delete(id)
		return true
	})
}

// Dispatch hands ev to every registered listener on the calling goroutine.
// Failures are logged per listener and never stop delivery to the rest.
func (r *ListenerRegistry) Dispatch(ev commtypes.StatsEvent) DispatchResult {
	var res DispatchResult
	r.listeners.Range(func(id uint64, l Listener) bool {
		if err := deliver(l, ev); err != nil {
			res.Failed += 1
			log.Error().Err(err).Uint64("listener", id).Uint64("seq", ev.Seq).
				Msg("stats listener failed")
		} else {
			res.Delivered += 1
		}
		return true
	})
	return res
}

func deliver(l Listener, ev commtypes.StatsEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = xerrors.Errorf("listener panicked: %v", p)
		}
	}()
	return l.OnStatsEvent(ev)
}

// find must be called with mu held.
func (r *ListenerRegistry) find(l Listener) (ListenerID, bool) {
	var found ListenerID
	ok := false
	r.listeners.Range(func(id uint64, other Listener) bool {
		if sameListener(l, other) {
			found = ListenerID(id)
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// sameListener compares identities without panicking on types that only look
// comparable (structs holding func or map values behind interfaces).
func sameListener(a, b Listener) (same bool) {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
