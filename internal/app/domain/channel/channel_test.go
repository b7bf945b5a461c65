package channel

import (
	"context"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"longpollchat/pkg/logger"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeTimers struct {
	mu     sync.Mutex
	active map[string]time.Duration
}

func (f *fakeTimers) AddTimer(id string, interval time.Duration, _ func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		f.active = make(map[string]time.Duration)
	}
	f.active[id] = interval
}

func (f *fakeTimers) RemoveTimer(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, id)
}

func (f *fakeTimers) ActiveTimers() map[string]time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]time.Duration, len(f.active))
	for k, v := range f.active {
		out[k] = v
	}
	return out
}

func newTestChannel(t *testing.T, opts ...Option) (*Channel, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return New(logger.Nop{}, append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

type recorder struct {
	mu    sync.Mutex
	calls [][]Message
}

func (r *recorder) callback(messages []Message) {
	r.mu.Lock()
	r.calls = append(r.calls, messages)
	r.mu.Unlock()
}

func (r *recorder) Calls() [][]Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func texts(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

func TestChannel_BacklogKeepsNewest(t *testing.T) {
	for _, n := range []int{1, 5, 6, 13} {
		t.Run(fmt.Sprintf("appends_%d", n), func(t *testing.T) {
			c, clock := newTestChannel(t, WithBacklog(5))

			var want []string
			for i := 0; i < n; i++ {
				text := fmt.Sprintf("m%d", i)
				c.Append("alice", TypeMsg, text)
				want = append(want, text)
				clock.Advance(time.Millisecond)

				assert.LessOrEqual(t, len(c.Messages()), 5)
			}

			if len(want) > 5 {
				want = want[len(want)-5:]
			}
			assert.Equal(t, want, texts(c.Messages()))
		})
	}
}

func TestChannel_TimestampsStrictlyIncrease(t *testing.T) {
	c, _ := newTestChannel(t)

	first := c.Append("alice", TypeMsg, "a")
	second := c.Append("alice", TypeMsg, "b")
	third := c.Append("alice", TypeMsg, "c")

	assert.Equal(t, newFakeClock().Now().UnixMilli(), first.Timestamp)
	assert.Greater(t, second.Timestamp, first.Timestamp)
	assert.Greater(t, third.Timestamp, second.Timestamp)

	rec := &recorder{}
	assert.Nil(t, c.Query(first.Timestamp, rec.callback))
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, []string{"b", "c"}, texts(rec.Calls()[0]))
}

func TestChannel_QueryBacklog(t *testing.T) {
	c, clock := newTestChannel(t)
	for i := 0; i < 3; i++ {
		c.Append("alice", TypeMsg, fmt.Sprintf("m%d", i))
		clock.Advance(time.Second)
	}
	all := c.Messages()
	oldest, latest := all[0].Timestamp, all[len(all)-1].Timestamp

	t.Run("since_before_oldest_returns_everything", func(t *testing.T) {
		rec := &recorder{}
		w := c.Query(oldest-1, rec.callback)

		assert.Nil(t, w)
		require.Len(t, rec.Calls(), 1)
		assert.Equal(t, all, rec.Calls()[0])
	})

	t.Run("since_zero_returns_everything", func(t *testing.T) {
		rec := &recorder{}
		c.Query(0, rec.callback)
		require.Len(t, rec.Calls(), 1)
		assert.Equal(t, []string{"m0", "m1", "m2"}, texts(rec.Calls()[0]))
	})

	t.Run("since_in_the_middle", func(t *testing.T) {
		rec := &recorder{}
		c.Query(all[1].Timestamp, rec.callback)
		require.Len(t, rec.Calls(), 1)
		assert.Equal(t, []string{"m2"}, texts(rec.Calls()[0]))
	})

	for _, since := range []int64{latest, latest + 1, latest + 100000} {
		t.Run(fmt.Sprintf("since_%d_parks", since-latest), func(t *testing.T) {
			rec := &recorder{}
			w := c.Query(since, rec.callback)

			assert.NotNil(t, w)
			assert.Empty(t, rec.Calls())
			assert.True(t, c.Cancel(w))
		})
	}
}

func TestChannel_ParkedWaitGetsOnlyNewMessage(t *testing.T) {
	c, clock := newTestChannel(t)
	old := c.Append("alice", TypeMsg, "old")
	clock.Advance(time.Second)

	first, second := &recorder{}, &recorder{}
	require.NotNil(t, c.Query(old.Timestamp, first.callback))
	require.NotNil(t, c.Query(old.Timestamp, second.callback))
	assert.Equal(t, 2, c.Stats().Waits)

	m := c.Append("bob", TypeMsg, "new")

	for _, rec := range []*recorder{first, second} {
		require.Len(t, rec.Calls(), 1)
		assert.Equal(t, []Message{m}, rec.Calls()[0])
	}
	assert.Equal(t, 0, c.Stats().Waits)

	c.Append("bob", TypeMsg, "later")
	assert.Len(t, first.Calls(), 1, "a wait is resolved exactly once")
}

func TestChannel_NotifiesBeforeTrimming(t *testing.T) {
	c, _ := newTestChannel(t, WithBacklog(1))
	prev := c.Append("alice", TypeMsg, "one")

	rec := &recorder{}
	require.NotNil(t, c.Query(prev.Timestamp, rec.callback))

	m := c.Append("alice", TypeMsg, "two")
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, []Message{m}, rec.Calls()[0])
	assert.Equal(t, []Message{m}, c.Messages())
}

func TestChannel_WaitTimesOut(t *testing.T) {
	c, clock := newTestChannel(t)

	rec := &recorder{}
	require.NotNil(t, c.Query(0, rec.callback))

	clock.Advance(DefaultCallbackTimeout)
	c.Sweep()
	assert.Empty(t, rec.Calls(), "not yet past the timeout")

	clock.Advance(time.Millisecond)
	c.Sweep()
	require.Len(t, rec.Calls(), 1)
	assert.NotNil(t, rec.Calls()[0])
	assert.Empty(t, rec.Calls()[0])

	stats := c.Stats()
	assert.Equal(t, 0, stats.Waits)
	assert.Equal(t, uint64(1), stats.TimedOut)

	c.Sweep()
	c.Append("alice", TypeMsg, "late")
	assert.Len(t, rec.Calls(), 1)
}

func TestChannel_SweepStopsAtFirstYoungWait(t *testing.T) {
	c, clock := newTestChannel(t)

	old1, old2, young := &recorder{}, &recorder{}, &recorder{}
	c.Query(0, old1.callback)
	c.Query(0, old2.callback)
	clock.Advance(20 * time.Second)
	c.Query(0, young.callback)

	clock.Advance(11 * time.Second)
	c.Sweep()

	assert.Len(t, old1.Calls(), 1)
	assert.Len(t, old2.Calls(), 1)
	assert.Empty(t, young.Calls())
	assert.Equal(t, 1, c.Stats().Waits)
}

func TestChannel_SweepAfterCancelInTheMiddle(t *testing.T) {
	c, clock := newTestChannel(t)

	first, middle, last := &recorder{}, &recorder{}, &recorder{}
	c.Query(0, first.callback)
	clock.Advance(5 * time.Second)
	w := c.Query(0, middle.callback)
	clock.Advance(5 * time.Second)
	c.Query(0, last.callback)

	require.True(t, c.Cancel(w))
	assert.False(t, c.Cancel(w))

	clock.Advance(26 * time.Second)
	c.Sweep()

	assert.Len(t, first.Calls(), 1)
	assert.Empty(t, middle.Calls())
	assert.Empty(t, last.Calls())

	clock.Advance(5 * time.Second)
	c.Sweep()
	assert.Len(t, last.Calls(), 1)
	assert.Empty(t, middle.Calls(), "cancelled waits are never resolved")
}

func TestChannel_CreateSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		nick    string
		wantErr error
	}{
		{name: "allowed_charset", nick: "ok_Nick-1^!"},
		{name: "digits", nick: "1234"},
		{name: "empty", nick: "", wantErr: ErrNickEmpty},
		{name: "space", nick: "bad nick!with space", wantErr: ErrNickInvalid},
		{name: "dot", nick: "a.b", wantErr: ErrNickInvalid},
		{name: "unicode", nick: "ник", wantErr: ErrNickInvalid},
		{name: "too_long", nick: fmt.Sprintf("%051d", 0), wantErr: ErrNickTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestChannel(t)

			s, err := c.CreateSession(tt.nick)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				assert.Equal(t, 0, c.Stats().Sessions)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.nick, s.Nick())
			assert.NotEmpty(t, s.ID())
		})
	}

	t.Run("exactly_max_length", func(t *testing.T) {
		c, _ := newTestChannel(t)
		_, err := c.CreateSession(fmt.Sprintf("%050d", 0))
		assert.NoError(t, err)
	})
}

func TestChannel_CreateSessionDuplicateNick(t *testing.T) {
	c, _ := newTestChannel(t)

	const attempts = 32
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		inUse   atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.CreateSession("Bob")
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrNickInUse):
				inUse.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(attempts-1), inUse.Load())
	assert.Equal(t, []string{"Bob"}, c.Nicks())
}

func TestChannel_NickFreedAfterDestroy(t *testing.T) {
	c, _ := newTestChannel(t)

	s, err := c.CreateSession("Bob")
	require.NoError(t, err)
	s.Destroy()

	again, err := c.CreateSession("Bob")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), again.ID())
}

func TestChannel_JoinSendScenario(t *testing.T) {
	c, clock := newTestChannel(t)

	alice, err := c.CreateSession("Alice")
	require.NoError(t, err)
	join := c.Append(alice.Nick(), TypeJoin, "")

	rec := &recorder{}
	c.Query(0, rec.callback)
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, []Message{join}, rec.Calls()[0])

	parked := &recorder{}
	require.NotNil(t, c.Query(join.Timestamp, parked.callback))

	clock.Advance(10 * time.Millisecond)
	s, ok := c.Session(alice.ID())
	require.True(t, ok)
	s.Poke()
	sent := c.Append(s.Nick(), TypeMsg, "hi")

	assert.Greater(t, sent.Timestamp, join.Timestamp)
	require.Len(t, parked.Calls(), 1)
	require.Len(t, parked.Calls()[0], 1)
	got := parked.Calls()[0][0]
	assert.Equal(t, "Alice", got.Nick)
	assert.Equal(t, TypeMsg, got.Type)
	assert.Equal(t, "hi", got.Text)
}

func TestChannel_SessionExpiry(t *testing.T) {
	c, clock := newTestChannel(t)

	idle, err := c.CreateSession("idle")
	require.NoError(t, err)
	busy, err := c.CreateSession("busy")
	require.NoError(t, err)
	last := c.Append("busy", TypeJoin, "")

	clock.Advance(40 * time.Second)
	busy.Poke()
	rec := &recorder{}
	require.NotNil(t, c.Query(last.Timestamp, rec.callback))
	clock.Advance(21 * time.Second)
	c.Sweep()

	_, ok := c.Session(idle.ID())
	assert.False(t, ok)
	_, ok = c.Session(busy.ID())
	assert.True(t, ok)
	assert.Equal(t, []string{"busy"}, c.Nicks())

	require.Len(t, rec.Calls(), 1)
	require.Len(t, rec.Calls()[0], 1, "the wait is younger than the callback timeout and sees the part")
	assert.Equal(t, Message{Nick: "idle", Type: TypePart, Timestamp: rec.Calls()[0][0].Timestamp}, rec.Calls()[0][0])
	assert.Equal(t, uint64(1), c.Stats().Expired)
}

func TestChannel_ExpireManySessionsInOrder(t *testing.T) {
	c, clock := newTestChannel(t)

	for _, nick := range []string{"c", "a", "b"} {
		_, err := c.CreateSession(nick)
		require.NoError(t, err)
	}
	clock.Advance(DefaultSessionTimeout + time.Second)
	c.Sweep()

	var parted []string
	for _, m := range c.Messages() {
		require.Equal(t, TypePart, m.Type)
		parted = append(parted, m.Nick)
	}
	assert.Equal(t, []string{"a", "b", "c"}, parted)
	assert.Empty(t, c.Nicks())
}

func TestSession_DestroyIsIdempotent(t *testing.T) {
	c, _ := newTestChannel(t)

	s, err := c.CreateSession("carol")
	require.NoError(t, err)

	s.Destroy()
	s.Destroy()

	messages := c.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, TypePart, messages[0].Type)
	assert.Equal(t, "carol", messages[0].Nick)
	assert.Equal(t, 0, c.Stats().Sessions)
}

func TestSession_Poke(t *testing.T) {
	c, clock := newTestChannel(t)

	s, err := c.CreateSession("dave")
	require.NoError(t, err)
	created := s.LastActivity()

	clock.Advance(time.Minute)
	s.Poke()
	assert.Equal(t, created.Add(time.Minute), s.LastActivity())
}

func TestChannel_WaitContextCancelled(t *testing.T) {
	c, _ := newTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Wait(ctx, 0)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Stats().Waits == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
	assert.Equal(t, 0, c.Stats().Waits)
}

func TestChannel_WaitResolvedByAppend(t *testing.T) {
	c, _ := newTestChannel(t)

	result := make(chan []Message, 1)
	go func() {
		messages, err := c.Wait(context.Background(), 0)
		assert.NoError(t, err)
		result <- messages
	}()

	require.Eventually(t, func() bool { return c.Stats().Waits == 1 }, time.Second, time.Millisecond)
	m := c.Append("erin", TypeMsg, "hello")

	select {
	case messages := <-result:
		assert.Equal(t, []Message{m}, messages)
	case <-time.After(time.Second):
		t.Fatal("Wait was not resolved")
	}
}

func TestChannel_WaitImmediate(t *testing.T) {
	c, _ := newTestChannel(t)
	m := c.Append("erin", TypeMsg, "hello")

	messages, err := c.Wait(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []Message{m}, messages)
}

func TestChannel_CallbackPanicDoesNotBlockOthers(t *testing.T) {
	c, _ := newTestChannel(t)

	rec := &recorder{}
	c.Query(0, func([]Message) { panic("broken client") })
	c.Query(0, rec.callback)

	assert.NotPanics(t, func() { c.Append("frank", TypeMsg, "x") })
	assert.Len(t, rec.Calls(), 1)
	assert.Equal(t, 0, c.Stats().Waits)
}

func TestChannel_CallbackMayReenter(t *testing.T) {
	c, _ := newTestChannel(t)

	var nested []Message
	c.Query(0, func(messages []Message) {
		nested = c.Messages()
	})
	c.Append("gina", TypeMsg, "x")

	assert.Len(t, nested, 1)
}

func TestChannel_StartAndClose(t *testing.T) {
	c, _ := newTestChannel(t, WithSweepInterval(250*time.Millisecond))
	timers := &fakeTimers{}

	c.Start(timers)
	assert.Equal(t, map[string]time.Duration{sweeperTimerID: 250 * time.Millisecond}, timers.ActiveTimers())

	rec := &recorder{}
	c.Query(0, rec.callback)

	c.Close()
	c.Close()

	assert.Empty(t, timers.ActiveTimers())
	require.Len(t, rec.Calls(), 1)
	assert.Empty(t, rec.Calls()[0])

	after := &recorder{}
	assert.Nil(t, c.Query(0, after.callback))
	require.Len(t, after.Calls(), 1)
	assert.Empty(t, after.Calls()[0])

	_, err := c.CreateSession("late")
	assert.ErrorIs(t, err, ErrClosed)
}

func BenchmarkChannel_Append(b *testing.B) {
	c := New(logger.Nop{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Append("bench", TypeMsg, "text")
	}
}

func BenchmarkChannel_Query(b *testing.B) {
	c := New(logger.Nop{})
	for i := 0; i < DefaultBacklog; i++ {
		c.Append("bench", TypeMsg, "text")
	}
	since := c.Messages()[DefaultBacklog/2].Timestamp
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Query(since, func([]Message) {})
	}
}

type eventLog struct {
	logger.Nop
	mu      sync.Mutex
	entries []string
}

func (e *eventLog) Info(msg string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, fmt.Sprint(append([]any{msg}, args...)...))
}

func TestChannel_LogsEventsWithAttributes(t *testing.T) {
	events := &eventLog{}
	clock := newFakeClock()
	c := New(events, WithClock(clock.Now))

	s, err := c.CreateSession("Alice")
	require.NoError(t, err)
	c.Append("Alice", TypeJoin, "")
	c.Append("Alice", TypeMsg, "hi")
	s.Destroy()

	require.Len(t, events.entries, 3)
	assert.Contains(t, events.entries[0], "Joined")
	assert.Contains(t, events.entries[0], "nick=Alice")
	assert.Contains(t, events.entries[1], "text=hi")
	assert.Contains(t, events.entries[2], "Exited")
}
