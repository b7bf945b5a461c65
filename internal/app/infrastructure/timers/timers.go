package timers

import (
	"fmt"
	"log/slog"
	"longpollchat/pkg/logger"
	"sync"
	"time"
)

type Timer struct {
	ID       string
	Interval time.Duration
	Task     func()
	stop     chan struct{}
	done     chan struct{}
}

// Timers runs repeating tasks, each on its own ticker. Runs of one task never
// overlap. A panicking run is logged and the timer keeps going.
type Timers struct {
	log    logger.Logger
	mu     sync.Mutex
	timers map[string]*Timer
}

func New(log logger.Logger) *Timers {
	return &Timers{
		log:    log,
		timers: make(map[string]*Timer),
	}
}

// AddTimer registers task, replacing any timer with the same id.
func (t *Timers) AddTimer(id string, interval time.Duration, task func()) {
	if interval <= 0 || task == nil {
		return
	}

	timer := &Timer{
		ID:       id,
		Interval: interval,
		Task:     task,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	prev := t.timers[id]
	t.timers[id] = timer
	t.mu.Unlock()

	if prev != nil {
		prev.halt()
	}

	go t.run(timer)
}

// RemoveTimer stops the timer and waits for a running task to return.
func (t *Timers) RemoveTimer(id string) {
	t.mu.Lock()
	timer, ok := t.timers[id]
	delete(t.timers, id)
	t.mu.Unlock()

	if ok {
		timer.halt()
	}
}

func (t *Timers) ActiveTimers() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := make(map[string]time.Duration, len(t.timers))
	for id, timer := range t.timers {
		active[id] = timer.Interval
	}
	return active
}

func (t *Timers) Stop() {
	t.mu.Lock()
	all := t.timers
	t.timers = make(map[string]*Timer)
	t.mu.Unlock()

	for _, timer := range all {
		timer.halt()
	}
}

func (t *Timers) run(timer *Timer) {
	defer close(timer.done)

	ticker := time.NewTicker(timer.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.exec(timer)
		case <-timer.stop:
			return
		}
	}
}

func (t *Timers) exec(timer *Timer) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("Timer task panicked", fmt.Errorf("%v", r), slog.String("timer", timer.ID))
		}
	}()

	timer.Task()
}

func (tm *Timer) halt() {
	close(tm.stop)
	<-tm.done
}
