package config

import "time"

func (m *Manager) GetDefault() *Config {
	return &Config{
		App: App{
			LogLevel: "info",
			LogFile:  "logs/main.log",
			GinMode:  "release",
			Addr:     ":8001",
		},
		Channel: Channel{
			Backlog:         200,
			MaxNickLength:   50,
			SessionTimeout:  60 * time.Second,
			CallbackTimeout: 30 * time.Second,
			SweepInterval:   time.Second,
		},
		Limiter: Limiter{
			Requests: 5,
			Per:      time.Second,
		},
		Server: Server{
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
	}
}
