// Package ipcheck asks a geolocation API, through Tor, which exit IP and
// location the outside world sees.
package ipcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuackproxy/cuackproxy/internal/model"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

var (
	// ErrProxyUnreachable is returned when the SOCKS5 endpoint cannot be reached.
	ErrProxyUnreachable = errors.New("Tor proxy is not working")

	// ErrRequestFailed is returned for every other verification failure.
	ErrRequestFailed = errors.New("IP check request failed")
)

// maxBodySize bounds the geolocation response.
const maxBodySize = 64 << 10

// Result is the exit IP and a "City, Country" location.
type Result struct {
	IP       string
	Location string
}

// ErrorResult is returned alongside every verification error.
var ErrorResult = Result{IP: model.ErrorIP, Location: model.UnknownValue}

// ipInfo is the part of the ipinfo.io response we use.
type ipInfo struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Verifier performs the geolocation lookup.
type Verifier struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithEndpoint sets the geolocation URL.
func WithEndpoint(endpoint string) Option {
	return func(v *Verifier) {
		v.endpoint = endpoint
	}
}

// WithTimeout bounds a single Check.
func WithTimeout(timeout time.Duration) Option {
	return func(v *Verifier) {
		v.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New returns a Verifier that sends its request with client.
func New(client *http.Client, opts ...Option) *Verifier {
	v := &Verifier{
		client:   client,
		endpoint: "https://ipinfo.io/json",
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// NewForProxy returns a Verifier whose requests go through the SOCKS5
// endpoint at proxyAddress.
func NewForProxy(proxyAddress string, opts ...Option) (*Verifier, error) {
	v := New(nil, opts...)
	client, err := tor.NewClient(proxyAddress, v.timeout)
	if err != nil {
		return nil, err
	}
	v.client = client.NewHTTPClient()
	return v, nil
}

// Check fetches the exit IP and location. On any failure it returns
// ErrorResult and an error matching ErrProxyUnreachable or ErrRequestFailed.
func (v *Verifier) Check(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return ErrorResult, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		if tor.IsProxyUnreachable(err) {
			return ErrorResult, fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
		}
		return ErrorResult, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrorResult, fmt.Errorf("%w: unexpected status %s", ErrRequestFailed, resp.Status)
	}

	var info ipInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&info); err != nil {
		return ErrorResult, fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}

	result := Result{
		IP:       orUnknown(info.IP),
		Location: model.FormatLocation(orUnknown(info.City), orUnknown(info.Country)),
	}
	v.logger.Debug("exit verified", "ip", result.IP, "location", result.Location)
	return result, nil
}

func orUnknown(s string) string {
	if s == "" {
		return model.UnknownValue
	}
	return s
}
