package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidProxyAddress is returned when the default SOCKS address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidControlAddress is returned when the control port address is not host:port.
	ErrInvalidControlAddress = errors.New("invalid control address: expected host:port")

	// ErrInvalidStartupTimeout is returned when the Tor startup timeout is not positive.
	ErrInvalidStartupTimeout = errors.New("invalid tor startup timeout: must be positive")

	// ErrInvalidPollInterval is returned when the poll interval is not positive
	// or exceeds the startup timeout.
	ErrInvalidPollInterval = errors.New("invalid tor poll interval: must be positive and not exceed the startup timeout")

	// ErrInvalidVerifyTimeout is returned when the verifier timeout is not positive.
	ErrInvalidVerifyTimeout = errors.New("invalid verify timeout: must be positive")

	// ErrEmptyEndpoint is returned when no geolocation endpoint is configured.
	ErrEmptyEndpoint = errors.New("geolocation endpoint must not be empty")

	// ErrEmptyAuditPath is returned when the key or log file path is empty.
	ErrEmptyAuditPath = errors.New("audit key file and log file paths must not be empty")
)
