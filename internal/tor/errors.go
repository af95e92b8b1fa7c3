package tor

import (
	"errors"
	"fmt"
)

// Lifecycle errors.
var (
	// ErrTorNotInstalled is returned when the tor binary is not on PATH.
	ErrTorNotInstalled = errors.New("tor is not installed")

	// ErrRunningNotReady is returned when a tor process is already running
	// but its control port does not report bootstrap done.
	ErrRunningNotReady = errors.New("tor is running but not ready")

	// ErrBootstrapTimeout is returned when the launched tor does not finish
	// bootstrapping within the startup timeout.
	ErrBootstrapTimeout = errors.New("tor did not finish bootstrapping in time")

	// ErrProcessExited is returned when the launched tor exits while we are
	// waiting for it to bootstrap.
	ErrProcessExited = errors.New("tor process exited during startup")

	// ErrNoCookie is returned when no control auth cookie file can be found.
	ErrNoCookie = errors.New("tor control auth cookie not found")
)

// Proxy errors.
var (
	// ErrProxyNotSOCKS5 is returned when the proxy address answers but does
	// not speak SOCKS5 without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned for a malformed host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// ProxyDialError reports a failure to reach the SOCKS5 endpoint itself, as
// opposed to a failure of the proxied connection behind it.
type ProxyDialError struct {
	// Addr is the SOCKS5 endpoint.
	Addr string

	// Err is the underlying dial error.
	Err error
}

// Error implements the error interface.
func (e *ProxyDialError) Error() string {
	return fmt.Sprintf("dial proxy %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying dial error.
func (e *ProxyDialError) Unwrap() error {
	return e.Err
}

// IsProxyUnreachable reports whether err was caused by the SOCKS5 endpoint
// being unreachable.
func IsProxyUnreachable(err error) bool {
	var dialErr *ProxyDialError
	return errors.As(err, &dialErr)
}

// ProxyStatus is the result of probing the SOCKS5 endpoint.
type ProxyStatus int

const (
	// ProxyStatusOK means the endpoint completed a SOCKS5 greeting.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType means something answered that is not an
	// unauthenticated SOCKS5 proxy.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect means the TCP connection failed.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout means the probe ran out of time.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the matching error, or nil for ProxyStatusOK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
