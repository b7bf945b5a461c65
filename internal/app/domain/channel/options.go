package channel

import "time"

const (
	DefaultBacklog         = 200
	DefaultMaxNickLength   = 50
	DefaultSessionTimeout  = 60 * time.Second
	DefaultCallbackTimeout = 30 * time.Second
	DefaultSweepInterval   = time.Second
)

type Option func(*Channel)

func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		if now != nil {
			c.now = now
		}
	}
}

func WithBacklog(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.backlog = n
		}
	}
}

func WithMaxNickLength(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.maxNickLength = n
		}
	}
}

func WithSessionTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.sessionTimeout = d
		}
	}
}

func WithCallbackTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.callbackTimeout = d
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}
