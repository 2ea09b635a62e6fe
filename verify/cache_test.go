package verify_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-ses-events/verify"
)

func TestCertificateCacheRejectsNonHTTPS(t *testing.T) {
	cache := verify.NewCertificateCache()
	if _, err := cache.Get(context.Background(), "http://sns.us-east-1.amazonaws.com/cert.pem"); err == nil {
		t.Fatalf("expected plain http certificate url to be rejected")
	}
	if _, err := cache.Get(context.Background(), "file:///etc/passwd"); err == nil {
		t.Fatalf("expected file scheme to be rejected")
	}
}

func TestCertificateCacheFetchesOnce(t *testing.T) {
	server, fetches := newDERCertServer(t, http.StatusOK)
	defer server.Close()

	cache := verify.NewCertificateCache()
	cache.Client = server.Client()

	ctx := context.Background()
	first, err := cache.Get(ctx, server.URL+"/cert")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := cache.Get(ctx, server.URL+"/cert")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached certificate pointer to be reused")
	}
	if got := atomic.LoadInt32(fetches); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}

	cache.Clear()
	if _, err := cache.Get(ctx, server.URL+"/cert"); err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if got := atomic.LoadInt32(fetches); got != 2 {
		t.Fatalf("expected refetch after clear, got %d fetches", got)
	}
}

func TestCertificateCacheDoesNotCacheFailures(t *testing.T) {
	var status int32 = http.StatusInternalServerError
	_, der := newTestCertDER(t)

	var fetches int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&fetches, 1)
		code := int(atomic.LoadInt32(&status))
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write(der)
	}))
	defer server.Close()

	cache := verify.NewCertificateCache()
	cache.Client = server.Client()

	ctx := context.Background()
	if _, err := cache.Get(ctx, server.URL+"/cert"); err == nil {
		t.Fatalf("expected fetch failure to surface")
	}

	atomic.StoreInt32(&status, http.StatusOK)
	if _, err := cache.Get(ctx, server.URL+"/cert"); err != nil {
		t.Fatalf("expected retry after failure to succeed: %v", err)
	}
	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}

func newDERCertServer(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	_, der := newTestCertDER(t)
	var fetches int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&fetches, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(der)
	}))
	return server, &fetches
}

func newTestCertDER(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "cache-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return key, der
}
