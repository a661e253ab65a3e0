// Package proxy rotates outbound proxies for verification attempts
package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	perr "cyberchecker/internal/platform/errors"
	str "cyberchecker/internal/platform/strings"

	xproxy "golang.org/x/net/proxy"
)

// Type is the proxy protocol
type Type string

// Supported proxy types
// socks4 appears in older proxy lists but has no dialer here and is
// rejected at parse time
const (
	TypeNone   Type = "none"
	TypeHTTP   Type = "http"
	TypeSOCKS5 Type = "socks5"
)

// ParseType validates a user supplied proxy type string
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TypeNone, nil
	case "http":
		return TypeHTTP, nil
	case "socks5":
		return TypeSOCKS5, nil
	case "socks4":
		return "", perr.Validationf("socks4 proxies are not supported")
	default:
		return "", perr.Validationf("unknown proxy type %q", s)
	}
}

// Rotator hands out proxies round-robin
// safe for concurrent use
type Rotator struct {
	typ     Type
	entries []string

	mu      sync.Mutex
	idx     int
	clients map[string]*http.Client
}

// Load reads host:port entries from path, one per line
// blank lines are ignored; an empty list means direct connections
func Load(path string, typ Type) (*Rotator, error) {
	if typ == TypeNone || path == "" {
		return &Rotator{typ: TypeNone}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "proxy file %q not found", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open proxy file %q", path)
	}
	defer func() { _ = f.Close() }()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := str.Normalize(sc.Text())
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read proxy file")
	}
	return &Rotator{typ: typ, entries: entries}, nil
}

// Next returns the next proxy address, round-robin
// ok=false when the rotator runs direct
func (r *Rotator) Next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.typ == TypeNone || len(r.entries) == 0 {
		return "", false
	}
	addr := r.entries[r.idx%len(r.entries)]
	r.idx++
	return addr, true
}

// Len reports how many proxies are loaded
func (r *Rotator) Len() int { return len(r.entries) }

// Client returns the http.Client routed through the next proxy
// the second return is the proxy address used, empty for direct
//
// clients are built once per proxy entry and reused across attempts so
// keep-alive connections pool instead of piling up; the timeout of the
// first request for an entry wins, which holds within a session
func (r *Rotator) Client(timeout time.Duration) (*http.Client, string, error) {
	addr, _ := r.Next()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[addr]; ok {
		return c, addr, nil
	}
	c, err := r.build(addr, timeout)
	if err != nil {
		return nil, "", err
	}
	if r.clients == nil {
		r.clients = map[string]*http.Client{}
	}
	r.clients[addr] = c
	return c, addr, nil
}

// Close drops the idle connections held by the cached clients
// call when the session finishes; in-flight requests are unaffected
func (r *Rotator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if tr, ok := c.Transport.(*http.Transport); ok {
			tr.CloseIdleConnections()
		}
	}
	r.clients = nil
}

func (r *Rotator) build(addr string, timeout time.Duration) (*http.Client, error) {
	if addr == "" {
		return &http.Client{Transport: baseTransport(), Timeout: timeout}, nil
	}
	tr := baseTransport()
	switch r.typ {
	case TypeHTTP:
		u, err := url.Parse(ensureScheme(addr, "http"))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "bad proxy address %q", addr)
		}
		tr.Proxy = http.ProxyURL(u)
	case TypeSOCKS5:
		d, err := xproxy.SOCKS5("tcp", addr, nil, xproxy.Direct)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "bad socks5 proxy %q", addr)
		}
		tr.DialContext = contextDialer(d)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// TLS verification is off: check targets routinely present broken chains
func baseTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ensureScheme prefixes addr with scheme:// unless one is present
func ensureScheme(addr, scheme string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return scheme + "://" + addr
}

// contextDialer adapts a proxy.Dialer, preferring its context form
func contextDialer(d xproxy.Dialer) func(context.Context, string, string) (net.Conn, error) {
	if cd, ok := d.(xproxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
