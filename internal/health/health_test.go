package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func TestCheckHTTPSucceedsOnHealthyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := mustSplitHostPort(t, srv.URL)
	probe := Probe{Name: "test", Port: port, Path: "/", Timeout: time.Second, Attempts: 1}

	result := CheckHTTP(context.Background(), host, probe)
	if !result.Healthy {
		t.Fatalf("expected healthy result, got: %s", result.Message)
	}
}

func TestCheckHTTPFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host, port := mustSplitHostPort(t, srv.URL)
	probe := Probe{Name: "test", Port: port, Path: "/", Timeout: time.Second, Attempts: 1}

	result := CheckHTTP(context.Background(), host, probe)
	if result.Healthy {
		t.Fatal("expected unhealthy result for 500 response")
	}
}

func TestCheckTCPSucceedsOnOpenPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, port := mustSplitHostPort(t, "http://"+listener.Addr().String())
	probe := Probe{Name: "test", Port: port, Timeout: time.Second, Attempts: 1}

	result := CheckTCP(context.Background(), "127.0.0.1", probe)
	if !result.Healthy {
		t.Fatalf("expected healthy result, got: %s", result.Message)
	}
}

func TestCheckAllReturnsResultForEveryProbe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	_, port := mustSplitHostPort(t, "http://"+listener.Addr().String())

	probes := []Probe{
		{Name: "a", Port: port, Timeout: time.Second, Attempts: 1},
		{Name: "b", Port: port, Timeout: time.Second, Attempts: 1},
	}
	results := CheckAll(context.Background(), "127.0.0.1", probes)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func mustSplitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}
