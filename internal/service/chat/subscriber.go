package chat

import "sync"

// subscriber delivers updates to one consumer in publish order without
// blocking the publisher. Updates go straight into out while it has room;
// the backlog is forwarded by run.
type subscriber struct {
	out  chan Update
	wake chan struct{}
	done chan struct{}

	mu       sync.Mutex
	backlog  []Update
	inFlight bool
	stopped  bool
}

func newSubscriber(buffer int) *subscriber {
	return &subscriber{
		out:  make(chan Update, buffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber) push(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if len(s.backlog) == 0 && !s.inFlight {
		select {
		case s.out <- update:
			return
		default:
		}
	}

	// Only the latest progress text matters to a lagging reader.
	if n := len(s.backlog); update.Kind == UpdateNotification && n > 0 && s.backlog[n-1].Kind == UpdateNotification {
		s.backlog[n-1] = update
	} else {
		s.backlog = append(s.backlog, update)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run forwards the backlog and closes out once stopped. It is the only
// goroutine that closes out.
func (s *subscriber) run() {
	for {
		s.mu.Lock()
		if len(s.backlog) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				s.closeOut()
				return
			}
		}
		next := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.inFlight = true
		s.mu.Unlock()

		select {
		case s.out <- next:
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		case <-s.done:
			s.closeOut()
			return
		}
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

func (s *subscriber) closeOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backlog = nil
	close(s.out)
}
