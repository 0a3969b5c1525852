package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jonwraymond/authflight/credential"
	"github.com/jonwraymond/authflight/refresh"
)

// okTripper always returns 200 without touching the network.
type okTripper struct{}

func (okTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}, nil
}

func BenchmarkTransport_RoundTrip(b *testing.B) {
	store := credential.NewMemoryStore()
	store.Set(credential.Credential{AccessToken: "t0"})

	coord, err := refresh.NewCoordinator(refresh.Config{
		Store: store,
		Refresher: credential.RefresherFunc(func(ctx context.Context) (credential.Credential, error) {
			return credential.Credential{AccessToken: "t1"}, nil
		}),
	})
	if err != nil {
		b.Fatalf("NewCoordinator() error = %v", err)
	}

	tr, err := New(Config{Base: okTripper{}, Store: store, Coordinator: coord})
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://origin.test/data", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := tr.RoundTrip(req)
		if err != nil {
			b.Fatalf("RoundTrip() error = %v", err)
		}
		resp.Body.Close()
	}
}
