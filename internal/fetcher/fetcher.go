// Package fetcher retrieves target documents over HTTP with timeout, size cap,
// redirect cap, and private-address filtering.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/scan"
)

var errRedirectCap = errors.New("redirect cap exceeded")

// Config controls Client behavior.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	UserAgent    string

	// AllowPrivate disables the loopback/private address guard. Intended for
	// local development against services on the same machine.
	AllowPrivate bool
}

// Client implements scan.Fetcher with net/http.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			// The guard runs post-DNS so rebinding cannot sidestep it.
			if !cfg.AllowPrivate {
				host, _, err := net.SplitHostPort(address)
				if err == nil {
					if ip := net.ParseIP(host); ip != nil && isDisallowedIP(ip) {
						return nil, fmt.Errorf("dial %s: %w", address, errDisallowedAddress)
					}
				}
			}
			return dialer.DialContext(ctx, network, address)
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return errRedirectCap
			}
			return nil
		},
	}

	return &Client{cfg: cfg, httpClient: client, logger: logger}
}

// Fetch retrieves the document at rawURL. It is purely a query: the only side
// effect is the network call itself.
func (c *Client) Fetch(ctx context.Context, rawURL string) (scan.FetchResult, error) {
	if err := validateShape(rawURL); err != nil {
		return scan.FetchResult{}, err
	}
	if !c.cfg.AllowPrivate {
		if err := checkLiteralIP(rawURL); err != nil {
			return scan.FetchResult{}, err
		}
		if err := c.checkResolvedAddrs(ctx, rawURL); err != nil {
			return scan.FetchResult{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return scan.FetchResult{}, newError(KindUnreachable, rawURL, "build request: %v", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	c.logger.Debug("fetching url", zap.String("url", rawURL))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scan.FetchResult{}, c.classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return scan.FetchResult{}, newError(KindUnreachable, rawURL,
			"HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") &&
		!strings.Contains(contentType, "application/xhtml") {
		return scan.FetchResult{}, newError(KindUnreachable, rawURL,
			"unexpected content type %q, expected text/html", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return scan.FetchResult{}, newError(KindTimeout, rawURL,
				"body read exceeded %s", c.cfg.Timeout)
		}
		return scan.FetchResult{}, newError(KindUnreachable, rawURL, "read body: %v", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return scan.FetchResult{}, newError(KindTooLarge, rawURL,
			"document exceeds %d MB cap", c.cfg.MaxBodyBytes>>20)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	c.logger.Info("fetched url",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	return scan.FetchResult{
		Body:       body,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
	}, nil
}

func (c *Client) classifyTransportError(rawURL string, err error) *Error {
	switch {
	case errors.Is(err, errRedirectCap):
		return newError(KindTooManyRedirects, rawURL,
			"more than %d redirects", c.cfg.MaxRedirects)
	case errors.Is(err, errDisallowedAddress):
		return newError(KindDisallowedURL, rawURL, "resolves to a disallowed address")
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, rawURL, "no response within %s", c.cfg.Timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, rawURL, "no response within %s", c.cfg.Timeout)
	}
	return newError(KindUnreachable, rawURL, "%v", unwrapURLError(err))
}

// checkResolvedAddrs resolves the host up front and rejects URLs pointing at
// loopback, link-local, or private ranges before any request is issued. The
// dial guard repeats the check in case re-resolution lands elsewhere.
func (c *Client) checkResolvedAddrs(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return newError(KindDisallowedURL, rawURL, "invalid url: %v", err)
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isDisallowedIP(ip) {
			return newError(KindDisallowedURL, rawURL, "address %s is not public", ip)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return newError(KindUnreachable, rawURL, "dns lookup failed for %s", host)
	}
	for _, addr := range addrs {
		if isDisallowedIP(addr.IP) {
			return newError(KindDisallowedURL, rawURL,
				"%s resolves to non-public address %s", host, addr.IP)
		}
	}
	return nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
