package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the proxy connectivity check. Short on
// purpose: this only verifies the proxy answers, not that Tor circuits
// work end to end.
const checkProxyTimeout = 2 * time.Second

// Client provides Tor network connectivity for probe traffic. It
// wraps a SOCKS5 dialer and builds HTTP clients that route through it.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" format.
	proxyAddress string

	// dialer is the cached SOCKS5 dialer.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients built here.
	timeout time.Duration
}

// NewClient creates a Tor client for the given SOCKS5 proxy address.
// The address format is validated; whether the proxy actually runs is
// not, so the client can be built before Tor is up. Call
// CheckConnection to verify.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require auth by default.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress checks the "host:port" format.
func isValidProxyAddress(address string) bool {
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host, port := parts[0], parts[1]
	if host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}

	return portNum >= 1
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03

	// socks5TestHost is a synthetic address for SOCKS5 verification.
	// The connection is expected to fail; only the proxy's protocol
	// behavior matters, so no real service is ever contacted.
	socks5TestHost = "connectivity-check.invalid"
)

// CheckConnection verifies the proxy speaks SOCKS5 by performing a
// real protocol handshake. More robust than banner sniffing: an HTTP
// proxy or random listener cannot mimic a proper SOCKS5 negotiation.
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
	defer conn.Close() //nolint:errcheck // Read-only check connection

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: offer no-auth only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to a synthetic host. Any well-formed reply, success or
	// failure code, proves the proxy processes SOCKS5 requests.
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrDomain,
		byte(len(socks5TestHost)),
	}
	connectReq = append(connectReq, []byte(socks5TestHost)...)
	connectReq = append(connectReq, 0x00, 0x50) // port 80

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// NewHTTPClient creates an HTTP client that routes all requests
// through the Tor proxy. TLS verification stays enabled: probe
// targets are clearnet platforms with real certificates, and an exit
// node must not be able to man-in-the-middle the probes.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		},
		// Small pool: each connection consumes a Tor circuit.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		// Compressed response sizes are a side channel; the bandwidth
		// savings are not worth it over an anonymity transport.
		DisableCompression: true,
	}

	// Platforms gate profile pages behind consent/session cookies; a
	// jar makes redirect chains through those gates work.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
