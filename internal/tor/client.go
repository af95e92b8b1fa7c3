package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 greeting probe.
const checkProxyTimeout = 2 * time.Second

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// Client routes connections through a Tor SOCKS5 endpoint.
//
// Host names are passed to the proxy unresolved, so DNS happens on the
// Tor side (socks5h semantics).
type Client struct {
	// proxyAddress is the SOCKS5 endpoint in host:port form.
	proxyAddress string

	// dialer is the SOCKS5 dialer. Its forward dialer marks failures to
	// reach the endpoint with *ProxyDialError.
	dialer proxy.ContextDialer

	// timeout is the overall timeout of HTTP clients built by NewHTTPClient.
	timeout time.Duration
}

// NewClient creates a client for the SOCKS5 endpoint at proxyAddress. It
// does not contact the proxy; call CheckConnection for that.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	forward := &forwardDialer{addr: proxyAddress}
	d, err := proxy.SOCKS5("tcp", proxyAddress, nil, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("SOCKS5 dialer does not support contexts")
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       cd,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress accepts host:port with a non-empty host and a port in
// 1..65535. IPv6 hosts must be bracketed.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// forwardDialer connects to the SOCKS5 endpoint itself.
type forwardDialer struct {
	addr string
	d    net.Dialer
}

func (f *forwardDialer) Dial(network, address string) (net.Conn, error) {
	return f.DialContext(context.Background(), network, address)
}

func (f *forwardDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := f.d.DialContext(ctx, network, address)
	if err != nil {
		return nil, &ProxyDialError{Addr: f.addr, Err: err}
	}
	return conn, nil
}

// ProxyAddress returns the configured SOCKS5 endpoint.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// DialContext opens a connection to address through Tor.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return c.dialer.DialContext(ctx, network, address)
}

// NewHTTPClient returns an HTTP client whose connections all go through
// Tor. Certificates are verified as usual and environment proxies are
// ignored.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         c.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: c.timeout,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// CheckConnection performs a SOCKS5 greeting against the endpoint and
// reports whether it accepts unauthenticated clients.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}
