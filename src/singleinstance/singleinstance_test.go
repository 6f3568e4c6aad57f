package singleinstance

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"
)

// useFreePort points the port range at a single free loopback port.
func useFreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", residentHost+":0")
	if err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	_ = lis.Close()
	t.Setenv("SINGLEINSTANCE_PORT_START", strconv.Itoa(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", strconv.Itoa(port))
	return port
}

func startServer(t *testing.T, ctx context.Context) Server {
	t.Helper()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestServerClientRoundTrip(t *testing.T) {
	port := useFreePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx)
	if srv.Port() != port {
		t.Errorf("Port() = %d, want %d", srv.Port(), port)
	}

	type result struct {
		delegated bool
		payload   []byte
		err       error
	}
	resCh := make(chan result, 1)
	go func() {
		d, p, err := NewClient().TryRunOnce(ctx, true)
		resCh <- result{d, p, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !conn.Request().WantPNG {
		t.Errorf("expected PNG request")
	}
	if err := conn.RespondSuccess([]byte("\x89PNG")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	_ = conn.Close()

	res := <-resCh
	if res.err != nil || !res.delegated {
		t.Fatalf("client: delegated=%v err=%v", res.delegated, res.err)
	}
	if string(res.payload) != "\x89PNG" {
		t.Errorf("payload = %q", res.payload)
	}
}

func TestRespondErrorReachesClient(t *testing.T) {
	useFreePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryRunOnce(ctx, false)
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if conn.Request().WantPNG {
		t.Error("expected clipboard request")
	}
	_ = conn.RespondError("selection cancelled")
	_ = conn.Close()

	if err := <-errCh; err == nil || err.Error() != "selection cancelled" {
		t.Errorf("client error = %v", err)
	}
}

func TestNoResident(t *testing.T) {
	useFreePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	delegated, _, err := NewClient().TryRunOnce(ctx, false)
	if delegated || err != nil {
		t.Errorf("delegated=%v err=%v, want no resident", delegated, err)
	}
	if _, ok := DetectResidentPort(ctx); ok {
		t.Error("DetectResidentPort found a resident on a free port")
	}
}

func TestDetectResidentPort(t *testing.T) {
	port := useFreePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	startServer(t, ctx)

	got, ok := DetectResidentPort(ctx)
	if !ok || got != port {
		t.Errorf("DetectResidentPort = %d, %v; want %d", got, ok, port)
	}
}

func TestPortRange(t *testing.T) {
	tests := []struct {
		start, end         string
		wantStart, wantEnd int
	}{
		{"", "", defaultPortStart, defaultPortEnd},
		{"50000", "50010", 50000, 50010},
		{"80", "2000", 1024, 2000},
		{"50010", "50000", 50000, 50010},
		{"x", "70000", defaultPortStart, 65535},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s", tt.start, tt.end), func(t *testing.T) {
			t.Setenv("SINGLEINSTANCE_PORT_START", tt.start)
			t.Setenv("SINGLEINSTANCE_PORT_END", tt.end)
			s, e := PortRange()
			if s != tt.wantStart || e != tt.wantEnd {
				t.Errorf("PortRange() = %d,%d want %d,%d", s, e, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
