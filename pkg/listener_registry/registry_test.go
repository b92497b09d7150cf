package listener_registry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"igmp-stats/pkg/commtypes"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

type countingListener struct {
	mu     sync.Mutex
	events []commtypes.StatsEvent
}

func (c *countingListener) OnStatsEvent(ev commtypes.StatsEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *countingListener) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testEvent(seq uint64) commtypes.StatsEvent {
	var counts [commtypes.NumCounters]uint64
	counts[commtypes.JoinRequest] = seq
	return commtypes.NewStatsUpdate(seq, time.Now(), commtypes.NewStatsSnapshot(counts))
}

func TestRegisterIsIdempotentForSameIdentity(t *testing.T) {
	r := NewListenerRegistry()
	l := &countingListener{}
	id1 := r.Register(l)
	id2 := r.Register(l)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, r.Len())

	r.Dispatch(testEvent(1))
	assert.Equal(t, 1, l.Count())
}

func TestRegisterFuncListenersAreDistinct(t *testing.T) {
	r := NewListenerRegistry()
	var calls atomic.Int32
	f := ListenerFunc(func(commtypes.StatsEvent) error {
		calls.Add(1)
		return nil
	})
	id1 := r.Register(f)
	id2 := r.Register(f)
	assert.NotEqual(t, id1, id2)
	r.Dispatch(testEvent(1))
	assert.Equal(t, int32(2), calls.Load())

	assert.True(t, r.UnregisterID(id1))
	assert.False(t, r.UnregisterID(id1))
	assert.False(t, r.Unregister(f))
	assert.Equal(t, 1, r.Len())
}

func TestRegisterNilIsIgnored(t *testing.T) {
	r := NewListenerRegistry()
	assert.Equal(t, ListenerID(0), r.Register(nil))
	assert.Equal(t, 0, r.Len())
}

func TestUnregister(t *testing.T) {
	r := NewListenerRegistry()
	a := &countingListener{}
	b := &countingListener{}
	r.Register(a)
	r.Register(b)
	assert.True(t, r.Unregister(a))
	assert.False(t, r.Unregister(a))

	res := r.Dispatch(testEvent(1))
	assert.Equal(t, DispatchResult{Delivered: 1}, res)
	assert.Equal(t, 0, a.Count())
	assert.Equal(t, 1, b.Count())
}

func TestDispatchListenerRegisteredBetweenTicks(t *testing.T) {
	r := NewListenerRegistry()
	a := &countingListener{}
	b := &countingListener{}
	r.Register(a)
	r.Dispatch(testEvent(1))
	r.Register(b)
	r.Dispatch(testEvent(1))

	assert.Equal(t, 2, a.Count())
	assert.Equal(t, 1, b.Count())
	assert.True(t, a.events[1].Snapshot.Equal(b.events[0].Snapshot))
}

func TestDispatchIsolatesFailures(t *testing.T) {
	r := NewListenerRegistry()
	r.Register(ListenerFunc(func(commtypes.StatsEvent) error {
		return xerrors.New("boom")
	}))
	r.Register(ListenerFunc(func(commtypes.StatsEvent) error {
		panic("listener bug")
	}))
	good := &countingListener{}
	r.Register(good)

	var res DispatchResult
	assert.NotPanics(t, func() { res = r.Dispatch(testEvent(1)) })
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, good.Count())
}

func TestListenerCanUnregisterItselfDuringDispatch(t *testing.T) {
	r := NewListenerRegistry()
	var self Listener
	var calls atomic.Int32
	self = &selfRemoving{r: r, calls: &calls, self: &self}
	r.Register(self)

	done := make(chan struct{})
	go func() {
		r.Dispatch(testEvent(1))
		r.Dispatch(testEvent(2))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch deadlocked against unregister")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, r.Len())
}

type selfRemoving struct {
	r     *ListenerRegistry
	calls *atomic.Int32
	self  *Listener
}

func (s *selfRemoving) OnStatsEvent(commtypes.StatsEvent) error {
	s.calls.Add(1)
	s.r.Unregister(*s.self)
	return nil
}

func TestConcurrentRegisterDuringDispatch(t *testing.T) {
	r := NewListenerRegistry()
	stable := &countingListener{}
	r.Register(stable)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				l := &countingListener{}
				r.Register(l)
				r.Unregister(l)
			}
		}()
	}
	for i := 0; i < 200; i++ {
		r.Dispatch(testEvent(uint64(i)))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 200, stable.Count())
	assert.Equal(t, 1, r.Len())
}

func TestClear(t *testing.T) {
	r := NewListenerRegistry()
	r.Register(&countingListener{})
	r.Register(&countingListener{})
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, DispatchResult{}, r.Dispatch(testEvent(1)))
}

type mapListener struct {
	inner Listener
}

func (m mapListener) OnStatsEvent(ev commtypes.StatsEvent) error {
	return m.inner.OnStatsEvent(ev)
}

func TestSameListenerDoesNotPanicOnHiddenFuncs(t *testing.T) {
	f := ListenerFunc(func(commtypes.StatsEvent) error { return nil })
	a := mapListener{inner: f}
	b := mapListener{inner: f}
	assert.NotPanics(t, func() {
		assert.False(t, sameListener(a, b))
	})
}
