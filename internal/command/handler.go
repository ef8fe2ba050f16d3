package command

import (
	"strings"
)

// Priority orders handlers registered for the same command type.
type Priority int

const (
	PriorityLow      Priority = 20
	PriorityNormal   Priority = 40
	PriorityHigh     Priority = 60
	PriorityCritical Priority = 80
	PrioritySystem   Priority = 100
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	case PrioritySystem:
		return "SYSTEM"
	}
	return "CUSTOM"
}

// Handler validates and executes commands of the types it declares.
//
// CanHandle is a cheap, side-effect free applicability check. Validate runs
// deeper precondition checks and returns a user-facing reason on failure.
// Handle performs the command; calling it twice has the effect twice.
type Handler interface {
	Name() string
	CommandTypes() []CommandType
	Priority() Priority
	Enabled() bool
	CanHandle(c *Context) bool
	Validate(c *Context) error
	Handle(c *Context) Result
	Help() string
}

// Undoer is implemented by handlers that can reverse their last execution.
type Undoer interface {
	Undo(c *Context) Result
}

// BaseHandler provides defaults for the Handler methods other than Handle.
// Embed it and override what differs.
type BaseHandler struct {
	name     string
	types    []CommandType
	priority Priority
	disabled bool
}

// NewBaseHandler returns a BaseHandler.
func NewBaseHandler(name string, priority Priority, types ...CommandType) BaseHandler {
	return BaseHandler{name: name, types: types, priority: priority}
}

func (b *BaseHandler) Name() string                { return b.name }
func (b *BaseHandler) CommandTypes() []CommandType { return b.types }
func (b *BaseHandler) Priority() Priority          { return b.priority }
func (b *BaseHandler) Enabled() bool               { return !b.disabled }
func (b *BaseHandler) SetEnabled(enabled bool)     { b.disabled = !enabled }
func (b *BaseHandler) CanHandle(*Context) bool     { return true }
func (b *BaseHandler) Validate(*Context) error     { return nil }

// Help lists the handled types.
func (b *BaseHandler) Help() string {
	names := make([]string, len(b.types))
	for i, t := range b.types {
		names[i] = string(t)
	}
	return b.name + ": 处理 " + strings.Join(names, ", ")
}
