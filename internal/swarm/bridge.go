package swarm

import (
	"time"

	"veritas/internal/logging"
)

// Stream bridges one background investigation to a pull-based consumer.
// The producer goroutine pushes events in emission order; the consumer
// calls Next until it returns false. When the producer stays silent past
// the heartbeat interval, Next synthesizes a ping so idle-connection
// timeouts on the transport never fire. Single producer, single consumer.
type Stream struct {
	ch        chan Event
	heartbeat time.Duration
	done      bool
}

func newStream(buffer int, heartbeat time.Duration) *Stream {
	if buffer <= 0 {
		buffer = 32
	}
	if heartbeat <= 0 {
		heartbeat = 2 * time.Second
	}
	return &Stream{
		ch:        make(chan Event, buffer),
		heartbeat: heartbeat,
	}
}

// emit hands an event to the consumer side. Producer only.
func (s *Stream) emit(e Event) {
	s.ch <- e
}

// end marks the stream finished. Producer only, called exactly once after
// the result event.
func (s *Stream) end() {
	s.ch <- Event{Kind: kindEnd}
	close(s.ch)
}

// Next returns the next event. The boolean is false once the stream has
// terminated; the end-of-stream sentinel itself is never returned. A quiet
// producer yields ping events instead of blocking past the heartbeat
// interval.
func (s *Stream) Next() (Event, bool) {
	if s.done {
		return Event{}, false
	}

	timer := time.NewTimer(s.heartbeat)
	defer timer.Stop()

	select {
	case e, ok := <-s.ch:
		if !ok || e.Kind == kindEnd {
			s.done = true
			logging.Get(logging.CategoryBridge).Debug("stream terminated")
			return Event{}, false
		}
		return e, true
	case <-timer.C:
		return PingEvent(), true
	}
}
