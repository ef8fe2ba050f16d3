package server

import (
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/output"
)

// Client abstracts the connection layer for both telnet and WebSocket connections.
type Client interface {
	// ReadLine blocks until a complete line is received (without newline).
	ReadLine() (string, error)

	// WriteLine sends one line. Telnet appends CRLF; WebSocket sends a message.
	WriteLine(message string) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}

// lineWriter adapts a Client to io.Writer for output.Console, which writes
// one newline-terminated line per message.
type lineWriter struct {
	client Client
}

func (w lineWriter) Write(p []byte) (int, error) {
	if err := w.client.WriteLine(strings.TrimRight(string(p), "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// newClientSink renders game output onto a client.
func newClientSink(c Client) output.Sink {
	return output.NewConsole(lineWriter{client: c})
}
