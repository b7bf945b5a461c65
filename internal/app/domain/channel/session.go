package channel

import "time"

// Session is one participant of the channel. lastActivity is guarded by the
// owning channel's mutex.
type Session struct {
	ch   *Channel
	id   string
	nick string

	lastActivity time.Time
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Nick() string {
	return s.nick
}

func (s *Session) LastActivity() time.Time {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	return s.lastActivity
}

// Poke marks the session as active now.
func (s *Session) Poke() {
	s.ch.mu.Lock()
	s.lastActivity = s.ch.now()
	s.ch.mu.Unlock()
}

// Destroy removes the session and announces a part message. Destroying an
// already removed session does nothing.
func (s *Session) Destroy() {
	s.ch.destroy(s.id)
}
