// Package singleinstance keeps one resident per user session and lets a
// -run-once invocation hand its snip to that resident over loopback TCP.
package singleinstance

import (
	"context"
)

// Wire protocol, one request per connection:
//
//	client: "PING\n"                      server: "PONG\n"
//	client: "SNIP CLIPBOARD\n" | "SNIP PNG\n"
//	server: "SUCCESS\n" + payload         or "ERROR\n" + message
//
// The PNG payload is the published image; clipboard mode sends none.
const (
	residentHost  = "127.0.0.1"
	pingRequest   = "PING\n"
	pongResponse  = "PONG\n"
	snipClipboard = "SNIP CLIPBOARD\n"
	snipPNG       = "SNIP PNG\n"
	statusSuccess = "SUCCESS\n"
	statusError   = "ERROR\n"
)

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start listens on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess sends success. PNG requests carry the encoded image.
	RespondSuccess(payload []byte) error
	RespondError(msg string) error
	Close() error
}

// Request represents a single run-once client request.
type Request struct {
	// WantPNG asks for the image to be returned instead of put on the
	// resident's clipboard.
	WantPNG bool
}

// Client attempts to delegate run-once invocation to a resident server.
type Client interface {
	// TryRunOnce scans the port range and delegates to the first resident
	// that answers. With no resident it returns delegated=false, err=nil.
	TryRunOnce(ctx context.Context, wantPNG bool) (delegated bool, payload []byte, err error)
}

func NewServer() Server { return &tcpServer{incoming: make(chan *tcpConn, 8)} }

func NewClient() Client { return tcpClient{} }
