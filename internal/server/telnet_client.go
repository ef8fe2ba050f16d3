package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// maxTelnetLine bounds one input line.
const maxTelnetLine = 4096

// TelnetClient wraps a raw TCP connection for telnet-style communication.
type TelnetClient struct {
	conn    net.Conn
	scanner *bufio.Scanner

	mu     sync.Mutex // serializes writes
	writer *bufio.Writer
}

// NewTelnetClient creates a new TelnetClient from a TCP connection.
func NewTelnetClient(conn net.Conn) *TelnetClient {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 512), maxTelnetLine)
	return &TelnetClient{
		conn:    conn,
		scanner: scanner,
		writer:  bufio.NewWriter(conn),
	}
}

// ReadLine reads a line from the connection (blocking). Telnet negotiation
// bytes and a trailing CR are dropped.
func (c *TelnetClient) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return stripTelnet(c.scanner.Text()), nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	// Scanner finished without error means EOF/connection closed
	return "", net.ErrClosed
}

// stripTelnet removes IAC command sequences (0xFF followed by a verb and,
// for option verbs, an option byte) and surrounding whitespace.
func stripTelnet(line string) string {
	if strings.IndexByte(line, 0xff) < 0 && !strings.HasSuffix(line, "\r") {
		return strings.TrimSpace(line)
	}
	b := []byte(line)
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != 0xff {
			out = append(out, b[i])
			continue
		}
		if i+1 < len(b) && b[i+1] >= 0xfb && b[i+1] <= 0xfe {
			i += 2 // WILL, WONT, DO, DONT carry an option byte
		} else {
			i++
		}
	}
	return strings.TrimSpace(string(out))
}

// WriteLine writes a message followed by CRLF to the client.
func (c *TelnetClient) WriteLine(message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.WriteString(message + "\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *TelnetClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
