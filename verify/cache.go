package verify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultFetchTimeout = 10 * time.Second

// CertificateCache fetches and memoizes signing certificates by URL. It is an
// injectable component, not a package global, so tests can reset state and a
// rotated certificate can be evicted operationally.
//
// Fetch failures are never cached: a verification attempt that misses is
// allowed to retry the fetch on the next request. The zero read path is
// lock-free only in the sense that a cold-start race causes at worst a
// duplicate fetch; entries are written atomically by key.
type CertificateCache struct {
	// Client performs the certificate fetch. It must validate the TLS
	// certificate of the endpoint it calls; a plain default client does.
	Client *http.Client

	mu    sync.RWMutex
	certs map[string]*x509.Certificate
}

func NewCertificateCache() *CertificateCache {
	return &CertificateCache{
		Client: &http.Client{
			Timeout: defaultFetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		certs: map[string]*x509.Certificate{},
	}
}

// Get returns the certificate served at certURL, fetching and parsing it on
// the first call. Only https URLs are fetched; anything else fails without
// network access.
func (c *CertificateCache) Get(ctx context.Context, certURL string) (*x509.Certificate, error) {
	if c == nil {
		return nil, fmt.Errorf("verify: certificate cache is nil")
	}
	certURL = strings.TrimSpace(certURL)
	parsed, err := url.Parse(certURL)
	if err != nil {
		return nil, fmt.Errorf("verify: malformed certificate url: %w", err)
	}
	if parsed.Scheme != "https" {
		return nil, fmt.Errorf("verify: certificate url %q is not https", certURL)
	}

	c.mu.RLock()
	cached, ok := c.certs[certURL]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	cert, err := c.fetch(ctx, certURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.certs[certURL] = cert
	c.mu.Unlock()
	return cert, nil
}

// Clear evicts every cached certificate.
func (c *CertificateCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.certs = map[string]*x509.Certificate{}
	c.mu.Unlock()
}

func (c *CertificateCache) fetch(ctx context.Context, certURL string) (*x509.Certificate, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("verify: build certificate request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify: fetch certificate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify: certificate fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("verify: read certificate body: %w", err)
	}
	return parseCertificate(body)
}

func parseCertificate(raw []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("verify: parse certificate: %w", err)
	}
	return cert, nil
}
