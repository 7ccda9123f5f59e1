package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIPC(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIPC() error {
	if c.IPC.ConnectDelayMillis < 0 {
		return errors.New("ipc.connect_delay_ms must be zero or positive")
	}
	if c.IPC.ConnectRetries <= 0 {
		return errors.New("ipc.connect_retries must be positive")
	}
	if c.IPC.RetryDelayMillis < 0 {
		return errors.New("ipc.retry_delay_ms must be zero or positive")
	}
	if c.IPC.RequestTimeoutSeconds <= 0 {
		return errors.New("ipc.request_timeout_seconds must be positive")
	}
	if c.IPC.ReadyGraceMillis < 0 {
		return errors.New("ipc.ready_grace_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.MaxEntries <= 0 {
		return errors.New("capture.max_entries must be positive")
	}
	if c.Capture.DebounceMillis < 0 {
		return errors.New("capture.debounce_ms must be zero or positive")
	}
	if c.Capture.MinDeltaSeconds < 0 {
		return errors.New("capture.min_delta_seconds must be zero or positive")
	}
	if c.Capture.SettleMillis < 0 {
		return errors.New("capture.settle_ms must be zero or positive")
	}
	if c.Capture.ReadyTimeoutSeconds <= 0 {
		return errors.New("capture.ready_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRelay() error {
	if c.Relay.DoubleClickMillis < 0 {
		return errors.New("relay.double_click_ms must be zero or positive")
	}
	if c.Relay.SeekStepSeconds <= 0 {
		return errors.New("relay.seek_step_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
