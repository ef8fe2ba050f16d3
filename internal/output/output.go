// Package output carries categorized game messages from command handlers to
// whatever is presenting the game: a terminal, a network connection or a test.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// MessageType categorizes a message for presentation.
type MessageType string

const (
	Narrative   MessageType = "narrative"
	System      MessageType = "system"
	Combat      MessageType = "combat"
	Success     MessageType = "success"
	Warning     MessageType = "warning"
	Error       MessageType = "error"
	Info        MessageType = "info"
	Achievement MessageType = "achievement"
)

// Sink accepts categorized messages.
type Sink interface {
	Write(t MessageType, msg string)
}

// Writef formats and writes one message.
func Writef(s Sink, t MessageType, format string, args ...any) {
	s.Write(t, fmt.Sprintf(format, args...))
}

// Message is one recorded write.
type Message struct {
	Type MessageType
	Text string
}

// Buffer records messages in order. It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	messages []Message
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Write(t MessageType, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Type: t, Text: msg})
}

// Messages returns a copy of everything written so far.
func (b *Buffer) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// Drain returns and clears the recorded messages.
func (b *Buffer) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.messages
	b.messages = nil
	return out
}

// Contains reports whether any message of type t contains substr.
func (b *Buffer) Contains(t MessageType, substr string) bool {
	for _, m := range b.Messages() {
		if m.Type == t && strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Text joins every message text with newlines.
func (b *Buffer) Text() string {
	msgs := b.Messages()
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = m.Text
	}
	return strings.Join(lines, "\n")
}

// Discard drops every message.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(MessageType, string) {}

// Console renders messages as styled lines on a writer. Colors are emitted
// only when the writer is a terminal that supports them.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[MessageType]lipgloss.Style
	plain  lipgloss.Style
}

// NewConsole returns a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w: w,
		styles: map[MessageType]lipgloss.Style{
			Narrative:   r.NewStyle().Foreground(lipgloss.Color("#EEEEEE")),
			System:      r.NewStyle().Foreground(lipgloss.Color("#888888")),
			Combat:      r.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
			Success:     r.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
			Warning:     r.NewStyle().Foreground(lipgloss.Color("#FFA500")),
			Error:       r.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
			Info:        r.NewStyle().Foreground(lipgloss.Color("#87AFFF")),
			Achievement: r.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		},
		plain: r.NewStyle(),
	}
}

func (c *Console) Write(t MessageType, msg string) {
	style, ok := c.styles[t]
	if !ok {
		style = c.plain
	}
	line := style.Render(prefix(t) + msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func prefix(t MessageType) string {
	switch t {
	case Warning:
		return "⚠ "
	case Error:
		return "✗ "
	case Success:
		return "✓ "
	case Achievement:
		return "★ "
	}
	return ""
}
