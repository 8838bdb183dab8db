package playback

import "sync"

const eventBufferSize = 16

// Subscription delivers state snapshots to one observer. Snapshots are
// dropped when the observer falls more than eventBufferSize behind.
type Subscription struct {
	StateChanged <-chan Snapshot
	Done         <-chan struct{}

	stateCh chan Snapshot
	doneCh  chan struct{}

	once   sync.Once
	detach func(*Subscription)
}

func newSubscription(detach func(*Subscription)) *Subscription {
	s := &Subscription{
		stateCh: make(chan Snapshot, eventBufferSize),
		doneCh:  make(chan struct{}),
		detach:  detach,
	}
	s.StateChanged = s.stateCh
	s.Done = s.doneCh
	return s
}

// Close stops delivery and releases the subscription. Safe to call more
// than once and after the controller was released.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach(s)
		}
		close(s.doneCh)
	})
}

// send delivers snap without blocking.
func (s *Subscription) send(snap Snapshot) {
	select {
	case s.stateCh <- snap:
	default:
	}
}
