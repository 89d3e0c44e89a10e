package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// testKey returns a freshly generated RSA key and its PKCS#1 PEM encoding
func testKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

func testCredentials(t *testing.T) (*ServiceAccountCredentials, *rsa.PrivateKey) {
	t.Helper()

	key, keyPEM := testKey(t)
	return &ServiceAccountCredentials{
		Type:         "service_account",
		ProjectID:    "test-project",
		PrivateKeyID: "key-1",
		PrivateKey:   keyPEM,
		ClientEmail:  "robot@test-project.iam.gserviceaccount.com",
	}, key
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransport answers requests with handler and records them
type fakeTransport struct {
	mu       sync.Mutex
	requests []*Request
	handler  func(req *Request) (*Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeTransport) recorded() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Request(nil), f.requests...)
}

func jsonResponse(status int, body string) *Response {
	return &Response{StatusCode: status, Status: httpStatus(status), Body: []byte(body)}
}

func httpStatus(code int) string {
	switch code {
	case 200:
		return "200 OK"
	case 400:
		return "400 Bad Request"
	case 401:
		return "401 Unauthorized"
	case 404:
		return "404 Not Found"
	default:
		return "500 Internal Server Error"
	}
}
