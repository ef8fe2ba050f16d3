package command

import (
	"context"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// Command sources.
const (
	SourcePlayer = "player"
	SourceNPC    = "npc"
	SourceSystem = "system"
	SourceScript = "script"
)

// Context is the per-invocation bundle handed to middleware and handlers.
// It lives for one command only.
type Context struct {
	Ctx      context.Context
	Command  ParsedCommand
	State    *state.Manager
	Output   output.Sink
	RawInput string
	Source   string
	Metadata map[string]any
}

// Player returns the player character, or nil before the game starts.
func (c *Context) Player() *character.Character {
	return c.State.Player()
}

// Location returns the current location.
func (c *Context) Location() string {
	return c.State.Location()
}

// GameContext returns the top of the context stack, ContextNone if empty.
func (c *Context) GameContext() state.ContextType {
	ct, _ := c.State.CurrentContext()
	return ct
}

// Flag returns a game flag.
func (c *Context) Flag(key string, def any) any {
	return c.State.Flag(key, def)
}

// SetFlag sets a game flag.
func (c *Context) SetFlag(key string, value any) {
	c.State.SetFlag(key, value)
}

func (c *Context) write(t output.MessageType, msg string) {
	if c.Output != nil {
		c.Output.Write(t, msg)
	}
}

func (c *Context) writef(t output.MessageType, format string, args ...any) {
	if c.Output != nil {
		output.Writef(c.Output, t, format, args...)
	}
}
