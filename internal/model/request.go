package model

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidPort is returned when a proxy port is not an integer in 1..65535.
var ErrInvalidPort = errors.New("invalid port")

// ErrInvalidInterfaceName is returned for an empty network interface name.
var ErrInvalidInterfaceName = errors.New("invalid network interface name")

const (
	minPort = 1
	maxPort = 65535
)

// ConnectRequest is one "Connect to Tor" request as entered by the user.
type ConnectRequest struct {
	// ProxyHost is the SOCKS5 host the verifier dials.
	ProxyHost string

	// ProxyPort is the SOCKS5 port, also written as SocksPort when Tor is launched.
	ProxyPort int

	// Exit is the exit node selection.
	Exit CountryCode

	// Interface is the network interface whose MAC address is randomized.
	Interface string
}

// ProxyAddress returns host:port for the SOCKS5 endpoint.
func (r ConnectRequest) ProxyAddress() string {
	return net.JoinHostPort(r.ProxyHost, strconv.Itoa(r.ProxyPort))
}

// Validate checks the fields that were not validated at parse time.
func (r ConnectRequest) Validate() error {
	if r.ProxyPort < minPort || r.ProxyPort > maxPort {
		return ErrInvalidPort
	}
	if strings.TrimSpace(r.Interface) == "" {
		return ErrInvalidInterfaceName
	}
	return nil
}

// ParsePort parses a decimal TCP port in 1..65535.
func ParsePort(input string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || port < minPort || port > maxPort {
		return 0, ErrInvalidPort
	}
	return port, nil
}
