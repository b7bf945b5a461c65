package channel

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"log/slog"
	"longpollchat/internal/app/ports"
	"longpollchat/pkg/logger"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const sweeperTimerID = "channel-sweeper"

var nickPattern = regexp.MustCompile(`^[A-Za-z0-9_\-^!]+$`)

// Channel is an in-memory broadcast log with long-poll delivery.
//
// A single mutex covers the backlog, the session table and the wait queue.
// Wait callbacks are always invoked after the mutex is released, so they may
// call back into the channel.
type Channel struct {
	mu  sync.Mutex
	log logger.Logger
	now func() time.Time

	messages []Message
	sessions map[string]*Session
	waits    []*PendingWait // in registration order

	lastTimestamp int64
	appended      uint64
	timedOut      uint64
	expired       uint64
	closed        bool
	timers        ports.TimersPort

	backlog         int
	maxNickLength   int
	sessionTimeout  time.Duration
	callbackTimeout time.Duration
	sweepInterval   time.Duration
}

type Stats struct {
	Sessions int    `json:"sessions"`
	Waits    int    `json:"waits"`
	Backlog  int    `json:"backlog"`
	Appended uint64 `json:"appended"`
	TimedOut uint64 `json:"timed_out"`
	Expired  uint64 `json:"expired"`
}

func New(log logger.Logger, opts ...Option) *Channel {
	c := &Channel{
		log:             log,
		now:             time.Now,
		sessions:        make(map[string]*Session),
		backlog:         DefaultBacklog,
		maxNickLength:   DefaultMaxNickLength,
		sessionTimeout:  DefaultSessionTimeout,
		callbackTimeout: DefaultCallbackTimeout,
		sweepInterval:   DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = make([]Message, 0, c.backlog+1)

	return c
}

// Start registers the expiry sweeper.
func (c *Channel) Start(timers ports.TimersPort) {
	c.mu.Lock()
	c.timers = timers
	c.mu.Unlock()

	timers.AddTimer(sweeperTimerID, c.sweepInterval, c.Sweep)
}

// Close stops the sweeper and resolves every pending wait with no messages.
// Later queries resolve immediately with no messages.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	timers := c.timers

	ready := make([]delivery, 0, len(c.waits))
	for _, w := range c.waits {
		if w.claim() {
			ready = append(ready, delivery{wait: w, messages: []Message{}})
		}
	}
	c.waits = nil
	c.mu.Unlock()

	if timers != nil {
		timers.RemoveTimer(sweeperTimerID)
	}
	c.deliver(ready)
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Append adds a message to the backlog and hands it to every pending wait.
func (c *Channel) Append(nick string, typ Type, text string) Message {
	c.mu.Lock()
	m, ready := c.appendLocked(nick, typ, text)
	c.mu.Unlock()

	c.deliver(ready)
	return m
}

func (c *Channel) appendLocked(nick string, typ Type, text string) (Message, []delivery) {
	ts := c.now().UnixMilli()
	if ts <= c.lastTimestamp {
		ts = c.lastTimestamp + 1
	}
	c.lastTimestamp = ts

	m := Message{
		Nick:      nick,
		Type:      typ,
		Text:      text,
		Timestamp: ts,
	}
	c.messages = append(c.messages, m)
	c.appended++
	c.logMessage(m)

	ready := make([]delivery, 0, len(c.waits))
	for _, w := range c.waits {
		if w.claim() {
			ready = append(ready, delivery{wait: w, messages: []Message{m}})
		}
	}
	clear(c.waits)
	c.waits = c.waits[:0]

	// trim only after every wait has been handed m
	if over := len(c.messages) - c.backlog; over > 0 {
		c.messages = append(c.messages[:0], c.messages[over:]...)
	}

	return m, ready
}

func (c *Channel) logMessage(m Message) {
	switch m.Type {
	case TypeMsg:
		c.log.Info("Message", slog.String("nick", m.Nick), slog.String("text", m.Text), slog.Int64("ts", m.Timestamp))
	case TypeJoin:
		c.log.Info("Joined", slog.String("nick", m.Nick), slog.Int64("ts", m.Timestamp))
	case TypePart:
		c.log.Info("Exited", slog.String("nick", m.Nick), slog.Int64("ts", m.Timestamp))
	}
}

// Query calls callback with every backlog message newer than since. When
// there are none it parks a wait and returns it; the callback then runs on
// the next append (with that message only), on timeout or on Close (with no
// messages). A nil result means the callback has already run.
func (c *Channel) Query(since int64, callback func([]Message)) *PendingWait {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.invoke(callback, []Message{})
		return nil
	}

	i := sort.Search(len(c.messages), func(i int) bool {
		return c.messages[i].Timestamp > since
	})
	if i < len(c.messages) {
		matching := slices.Clone(c.messages[i:])
		c.mu.Unlock()
		c.invoke(callback, matching)
		return nil
	}

	w := &PendingWait{registeredAt: c.now(), resolve: callback}
	c.waits = append(c.waits, w)
	c.mu.Unlock()

	return w
}

// Wait is the blocking form of Query. When ctx ends first the wait is
// withdrawn unresolved and ctx.Err() is returned.
func (c *Channel) Wait(ctx context.Context, since int64) ([]Message, error) {
	result := make(chan []Message, 1)
	w := c.Query(since, func(messages []Message) {
		result <- messages
	})
	if w == nil {
		return <-result, nil
	}

	select {
	case messages := <-result:
		return messages, nil
	case <-ctx.Done():
		if c.Cancel(w) {
			return nil, ctx.Err()
		}
		// resolution already claimed the wait, the result is on its way
		return <-result, nil
	}
}

// Cancel withdraws a parked wait without resolving it. It reports false when
// the wait has already been resolved or withdrawn.
func (c *Channel) Cancel(w *PendingWait) bool {
	if w == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := slices.Index(c.waits, w)
	if idx < 0 || !w.claim() {
		return false
	}
	// removal keeps the rest in registration order, Sweep may still stop early
	c.waits = slices.Delete(c.waits, idx, idx+1)

	return true
}

// CreateSession validates nick and registers a new session for it. The
// caller announces the join.
func (c *Channel) CreateSession(nick string) (*Session, error) {
	if err := c.validateNick(nick); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	for _, s := range c.sessions {
		if s.nick == nick {
			return nil, fmt.Errorf("%w: %s", ErrNickInUse, nick)
		}
	}

	id := uuid.NewString()
	for {
		if _, taken := c.sessions[id]; !taken {
			break
		}
		id = uuid.NewString()
	}

	s := &Session{
		ch:           c,
		id:           id,
		nick:         nick,
		lastActivity: c.now(),
	}
	c.sessions[id] = s

	return s, nil
}

func (c *Channel) validateNick(nick string) error {
	if nick == "" {
		return ErrNickEmpty
	}
	if len(nick) > c.maxNickLength {
		return fmt.Errorf("%w: %d > %d", ErrNickTooLong, len(nick), c.maxNickLength)
	}
	if !nickPattern.MatchString(nick) {
		return fmt.Errorf("%w: %q", ErrNickInvalid, nick)
	}
	return nil
}

func (c *Channel) Session(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	return s, ok
}

func (c *Channel) destroy(id string) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, id)
	_, ready := c.appendLocked(s.nick, TypePart, "")
	c.mu.Unlock()

	c.deliver(ready)
}

// Nicks returns the nicks of all live sessions, sorted.
func (c *Channel) Nicks() []string {
	c.mu.Lock()
	nicks := make([]string, 0, len(c.sessions))
	for _, s := range c.sessions {
		nicks = append(nicks, s.nick)
	}
	c.mu.Unlock()

	slices.Sort(nicks)
	return nicks
}

func (c *Channel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Sessions: len(c.sessions),
		Waits:    len(c.waits),
		Backlog:  len(c.messages),
		Appended: c.appended,
		TimedOut: c.timedOut,
		Expired:  c.expired,
	}
}

// Sweep resolves timed out waits with no messages and destroys idle sessions.
func (c *Channel) Sweep() {
	c.mu.Lock()
	now := c.now()

	var ready []delivery
	// waits are in registration order: the first young one ends the scan
	for len(c.waits) > 0 && now.Sub(c.waits[0].registeredAt) > c.callbackTimeout {
		w := c.waits[0]
		c.waits[0] = nil
		c.waits = c.waits[1:]

		if w.claim() {
			ready = append(ready, delivery{wait: w, messages: []Message{}})
			c.timedOut++
		}
	}

	var idle []*Session
	for _, s := range c.sessions {
		if now.Sub(s.lastActivity) > c.sessionTimeout {
			idle = append(idle, s)
		}
	}
	slices.SortFunc(idle, func(a, b *Session) int {
		if d := a.lastActivity.Compare(b.lastActivity); d != 0 {
			return d
		}
		return strings.Compare(a.nick, b.nick)
	})
	for _, s := range idle {
		delete(c.sessions, s.id)
		_, r := c.appendLocked(s.nick, TypePart, "")
		ready = append(ready, r...)
		c.expired++
	}
	c.mu.Unlock()

	c.deliver(ready)
}

func (c *Channel) deliver(ready []delivery) {
	for _, d := range ready {
		c.invoke(d.wait.resolve, d.messages)
	}
}

// invoke recovers callback panics.
func (c *Channel) invoke(callback func([]Message), messages []Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Wait callback panicked", fmt.Errorf("%v", r))
		}
	}()

	callback(messages)
}
