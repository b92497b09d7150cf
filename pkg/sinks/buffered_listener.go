package sinks

import (
	"sync"
	"sync/atomic"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/listener_registry"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const DEFAULT_BUFFER_CAPACITY = 64

// BufferedListener hands events to a wrapped listener on its own goroutine so
// the publisher never waits for it. At most capacity events are queued; when
// full the oldest queued event is dropped.
type BufferedListener struct {
	inner    listener_registry.Listener
	name     string
	capacity int

	mu     syncutils.Mutex
	cond   *sync.Cond
	queue  *deque.Deque[commtypes.StatsEvent]
	closed bool

	dropped atomic.Uint64
	done    chan struct{}
}

var _ = Sink(&BufferedListener{})

func NewBufferedListener(name string, inner listener_registry.Listener, capacity int) *BufferedListener {
	if capacity <= 0 {
		capacity = DEFAULT_BUFFER_CAPACITY
	}
	b := &BufferedListener{
		inner:    inner,
		name:     name,
		capacity: capacity,
		queue:    deque.New[commtypes.StatsEvent](),
		done:     make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b
}

func (b *BufferedListener) Name() string { return b.name }

func (b *BufferedListener) Dropped() uint64 { return b.dropped.Load() }

func (b *BufferedListener) OnStatsEvent(ev commtypes.StatsEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return common_errors.ErrSinkClosed
	}
	for b.queue.Len() >= b.capacity {
		old := b.queue.PopFront()
		b.dropped.Add(1)
		log.Warn().Str("sink", b.name).Uint64("seq", old.Seq).Msg("buffer full, dropping oldest stats event")
	}
	b.queue.PushBack(ev)
	b.cond.Signal()
	return nil
}

func (b *BufferedListener) run() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for b.queue.Len() == 0 && !b.closed {
			b.cond.Wait()
		}
		if b.closed {
			b.mu.Unlock()
			return
		}
		ev := b.queue.PopFront()
		b.mu.Unlock()
		if err := b.deliver(ev); err != nil {
			log.Error().Err(err).Str("sink", b.name).Uint64("seq", ev.Seq).Msg("buffered stats listener failed")
		}
	}
}

func (b *BufferedListener) deliver(ev commtypes.StatsEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = xerrors.Errorf("listener panicked: %v", p)
		}
	}()
	return b.inner.OnStatsEvent(ev)
}

// Close discards queued events, waits for an in-progress delivery to finish
// and closes the wrapped listener if it is a Sink.
func (b *BufferedListener) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.queue.Clear()
	b.cond.Broadcast()
	b.mu.Unlock()
	<-b.done
	if s, ok := b.inner.(Sink); ok {
		return s.Close()
	}
	return nil
}
