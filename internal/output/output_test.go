package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	b.Write(Narrative, "山风拂面")
	Writef(b, Combat, "你对%s造成了%d点伤害", "妖兽", 12)

	msgs := b.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Type != Combat || msgs[1].Text != "你对妖兽造成了12点伤害" {
		t.Errorf("second message = %+v", msgs[1])
	}
	if !b.Contains(Narrative, "山风") {
		t.Error("Contains should match narrative text")
	}
	if b.Contains(Error, "山风") {
		t.Error("Contains should respect the message type")
	}
	if got := b.Text(); got != "山风拂面\n你对妖兽造成了12点伤害" {
		t.Errorf("Text() = %q", got)
	}

	if drained := b.Drain(); len(drained) != 2 {
		t.Errorf("Drain returned %d messages", len(drained))
	}
	if len(b.Messages()) != 0 {
		t.Error("Drain should clear the buffer")
	}
}

func TestConsoleWritesLines(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out)
	c.Write(Success, "突破成功")
	c.Write(Narrative, "你来到了主城")
	c.Write(MessageType("custom"), "plain")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	// A bytes.Buffer is not a terminal, so no escape codes are emitted.
	if lines[0] != "✓ 突破成功" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "你来到了主城" || lines[2] != "plain" {
		t.Errorf("lines = %q", lines)
	}
}

func TestDiscard(t *testing.T) {
	Discard.Write(Error, "ignored")
}
