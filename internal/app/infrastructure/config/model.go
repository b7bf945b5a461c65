package config

import "time"

type Config struct {
	App     App     `json:"app"`
	Channel Channel `json:"channel"`
	Limiter Limiter `json:"limiter"`
	Server  Server  `json:"server"`
}

type App struct {
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	GinMode   string `json:"gin_mode"`
	Addr      string `json:"addr"`
	AuthToken string `json:"auth_token"` // basic auth password for /metrics, /stats and pprof
}

type Channel struct {
	Backlog         int           `json:"backlog"`
	MaxNickLength   int           `json:"max_nick_length"`
	SessionTimeout  time.Duration `json:"session_timeout"`
	CallbackTimeout time.Duration `json:"callback_timeout"`
	SweepInterval   time.Duration `json:"sweep_interval"`
}

// Limiter is the per-session send token bucket.
type Limiter struct {
	Requests int           `json:"requests"` // burst
	Per      time.Duration `json:"per"`      // refill period for the whole burst
}

type Server struct {
	ReadHeaderTimeout time.Duration `json:"read_header_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
}
