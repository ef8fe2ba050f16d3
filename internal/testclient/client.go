// Package testclient drives a running server over telnet the way a player
// would. It backs the server's integration tests and cmd/testrunner.
package testclient

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// NamePrompt is the first line a server sends to a new connection.
const NamePrompt = "请输入你的道号"

// TestClient is one telnet connection. Every non-empty line the server
// sends is kept until ClearMessages.
type TestClient struct {
	Name     string
	conn     net.Conn
	reader   *bufio.Reader
	writer   *bufio.Writer
	messages []string
	mu       sync.Mutex
	writeMu  sync.Mutex
	done     chan struct{}
	closed   chan struct{}
}

// Dial connects without answering the name prompt.
func Dial(address string) (*TestClient, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go client.readMessages()
	return client, nil
}

// Connect dials and enters the game as name.
func Connect(name, address string) (*TestClient, error) {
	client, err := Dial(address)
	if err != nil {
		return nil, err
	}
	client.Name = name

	if !client.WaitForMessage(NamePrompt, 2*time.Second) {
		client.Close()
		return nil, fmt.Errorf("no name prompt, messages: %v", client.GetMessages())
	}
	if err := client.SendCommand(name); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to send name: %w", err)
	}
	if !client.WaitForMessage("欢迎，"+name, 2*time.Second) {
		messages := client.GetMessages()
		client.Close()
		return nil, fmt.Errorf("failed to enter game, messages: %v", messages)
	}
	return client, nil
}

func (c *TestClient) readMessages() {
	defer close(c.closed)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		line, err := c.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			c.mu.Lock()
			c.messages = append(c.messages, line)
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// SendCommand sends one line.
func (c *TestClient) SendCommand(cmd string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.writer.WriteString(cmd + "\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// GetMessages returns a copy of everything received so far.
func (c *TestClient) GetMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]string, len(c.messages))
	copy(result, c.messages)
	return result
}

// GetLastMessage returns the most recent line, or "".
func (c *TestClient) GetLastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

// ClearMessages drops the received lines.
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// HasMessage reports whether any received line contains text.
func (c *TestClient) HasMessage(text string) bool {
	for _, msg := range c.GetMessages() {
		if strings.Contains(msg, text) {
			return true
		}
	}
	return false
}

// WaitForMessage polls until a line containing text arrives.
func (c *TestClient) WaitForMessage(text string, timeout time.Duration) bool {
	_, ok := c.WaitForAnyMessage([]string{text}, timeout)
	return ok
}

// WaitForAnyMessage polls until a line containing any of texts arrives and
// returns the text that matched.
func (c *TestClient) WaitForAnyMessage(texts []string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, msg := range c.GetMessages() {
			for _, text := range texts {
				if strings.Contains(msg, text) {
					return text, true
				}
			}
		}
		if time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// WaitForClose waits for the server to hang up.
func (c *TestClient) WaitForClose(timeout time.Duration) bool {
	select {
	case <-c.closed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *TestClient) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

// PrintMessages dumps the received lines.
func (c *TestClient) PrintMessages() {
	fmt.Printf("\n=== Messages for %s ===\n", c.Name)
	for i, msg := range c.GetMessages() {
		fmt.Printf("[%d] %s\n", i, msg)
	}
	fmt.Println("======================")
}
