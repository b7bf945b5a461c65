package config

import (
	"errors"
	"fmt"
	"time"
)

func (m *Manager) validate(cfg *Config) error {
	// app
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error; got %s", cfg.App.LogLevel)
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if cfg.App.GinMode != "" && !validModes[cfg.App.GinMode] {
		return fmt.Errorf("app.gin_mode must be one of debug, release, test; got %s", cfg.App.GinMode)
	}

	if cfg.App.Addr == "" {
		return errors.New("app.addr is required")
	}

	// channel
	if cfg.Channel.Backlog < 1 || cfg.Channel.Backlog > 100000 {
		return errors.New("channel.backlog must be [1,100000]")
	}
	if cfg.Channel.MaxNickLength < 1 || cfg.Channel.MaxNickLength > 256 {
		return errors.New("channel.max_nick_length must be [1,256]")
	}
	if cfg.Channel.SweepInterval < 10*time.Millisecond {
		return errors.New("channel.sweep_interval must be at least 10ms")
	}
	if cfg.Channel.CallbackTimeout < cfg.Channel.SweepInterval {
		return errors.New("channel.callback_timeout must not be shorter than channel.sweep_interval")
	}
	if cfg.Channel.SessionTimeout < cfg.Channel.CallbackTimeout {
		return errors.New("channel.session_timeout must not be shorter than channel.callback_timeout")
	}

	// limiter
	if (cfg.Limiter.Requests != 0 && cfg.Limiter.Per == 0) || (cfg.Limiter.Requests == 0 && cfg.Limiter.Per != 0) {
		return errors.New("limiter.requests and limiter.per must both be set or both be zero")
	}
	if cfg.Limiter.Requests < 0 || cfg.Limiter.Per < 0 {
		return errors.New("limiter values must not be negative")
	}

	// server
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = 5 * time.Second
	}

	return nil
}
