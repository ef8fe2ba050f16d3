package command

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/xianmud/internal/antispam"
	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// Next runs the rest of the chain.
type Next func() Result

// Middleware wraps command dispatch. A middleware may short-circuit by
// returning without calling next.
type Middleware interface {
	Name() string
	Process(c *Context, next Next) Result
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(c *Context, next Next) Result

func (f MiddlewareFunc) Name() string { return "func" }

func (f MiddlewareFunc) Process(c *Context, next Next) Result { return f(c, next) }

type namedMiddleware struct {
	name string
	fn   MiddlewareFunc
}

func (m namedMiddleware) Name() string                         { return m.name }
func (m namedMiddleware) Process(c *Context, next Next) Result { return m.fn(c, next) }

// Named wraps fn as a middleware with a name.
func Named(name string, fn MiddlewareFunc) Middleware {
	return namedMiddleware{name: name, fn: fn}
}

// =============================================================================
// Logging
// =============================================================================

// LoggingMiddleware logs each command and its outcome.
type LoggingMiddleware struct{}

func (LoggingMiddleware) Name() string { return "logging" }

func (LoggingMiddleware) Process(c *Context, next Next) Result {
	start := time.Now()
	logger.Info("Executing command",
		"source", c.Source,
		"input", c.RawInput,
		"type", string(c.Command.Type))

	result := next()

	logger.Info("Command finished",
		"source", c.Source,
		"type", string(c.Command.Type),
		"success", result.Success,
		"error", result.Error,
		"duration", time.Since(start))
	return result
}

// =============================================================================
// Validation
// =============================================================================

var allowedInCombat = map[CommandType]bool{
	Attack:   true,
	UseSkill: true,
	Defend:   true,
	Flee:     true,
	UseItem:  true,
	Status:   true,
}

var forbiddenInDialogue = map[CommandType]bool{
	Move:      true,
	Attack:    true,
	Cultivate: true,
}

// ValidationMiddleware gates commands by game phase: players need a
// character, combat allows only combat commands, and dialogue forbids
// moving, attacking and cultivating.
type ValidationMiddleware struct{}

func (ValidationMiddleware) Name() string { return "validation" }

func (ValidationMiddleware) Process(c *Context, next Next) Result {
	if c.Source == SourcePlayer && c.Player() == nil {
		return Failure("游戏尚未开始", true)
	}
	switch c.GameContext() {
	case state.ContextCombat:
		if !allowedInCombat[c.Command.Type] {
			return Failure("战斗中无法执行此命令", true)
		}
	case state.ContextDialogue:
		if forbiddenInDialogue[c.Command.Type] {
			return Failure("对话中无法执行此命令", true)
		}
	}
	return next()
}

// =============================================================================
// Cooldown and rate limit
// =============================================================================

// CooldownMiddleware blocks a command type for a source until its cooldown
// expires. The cooldown starts only when the command succeeds.
type CooldownMiddleware struct {
	tracker   *antispam.Tracker
	cooldowns map[CommandType]time.Duration
}

// DefaultCooldowns are the built-in per-type cooldowns.
func DefaultCooldowns() map[CommandType]time.Duration {
	return map[CommandType]time.Duration{
		Cultivate: 5 * time.Second,
		UseSkill:  2 * time.Second,
		Save:      10 * time.Second,
	}
}

// NewCooldownMiddleware returns a cooldown gate backed by tracker.
func NewCooldownMiddleware(tracker *antispam.Tracker, cooldowns map[CommandType]time.Duration) *CooldownMiddleware {
	if cooldowns == nil {
		cooldowns = DefaultCooldowns()
	}
	return &CooldownMiddleware{tracker: tracker, cooldowns: cooldowns}
}

func (m *CooldownMiddleware) Name() string { return "cooldown" }

func (m *CooldownMiddleware) Process(c *Context, next Next) Result {
	d, ok := m.cooldowns[c.Command.Type]
	if !ok || d <= 0 {
		return next()
	}
	key := c.Source + ":" + string(c.Command.Type)
	if check := m.tracker.CheckCooldown(key); !check.Allowed {
		return Failure(fmt.Sprintf("命令冷却中，请等待 %.1f 秒", check.Wait.Seconds()), true)
	}

	result := next()
	if result.Success {
		m.tracker.StartCooldown(key, d)
	}
	return result
}

// RateLimitMiddleware caps commands per source in a sliding window.
type RateLimitMiddleware struct {
	tracker *antispam.Tracker
}

// NewRateLimitMiddleware returns a rate limit backed by tracker.
func NewRateLimitMiddleware(tracker *antispam.Tracker) *RateLimitMiddleware {
	return &RateLimitMiddleware{tracker: tracker}
}

func (m *RateLimitMiddleware) Name() string { return "rate_limit" }

// Enabled reports whether the tracker enforces a limit.
func (m *RateLimitMiddleware) Enabled() bool { return m.tracker.Config().Enabled }

func (m *RateLimitMiddleware) Process(c *Context, next Next) Result {
	if check := m.tracker.Check(c.Source); !check.Allowed {
		cfg := m.tracker.Config()
		return Failure(fmt.Sprintf("命令太频繁，请稍后再试（%d秒内最多%d条）",
			int(cfg.TimeWindow.Seconds()), cfg.MaxCommands), true)
	}
	return next()
}

// =============================================================================
// Tracing
// =============================================================================

// TracingMiddleware records one span per command. Handlers see the span
// through Context.Ctx.
type TracingMiddleware struct {
	tracer trace.Tracer
}

// NewTracingMiddleware returns a middleware that starts spans on tracer.
func NewTracingMiddleware(tracer trace.Tracer) *TracingMiddleware {
	return &TracingMiddleware{tracer: tracer}
}

func (m *TracingMiddleware) Name() string { return "tracing" }

func (m *TracingMiddleware) Process(c *Context, next Next) Result {
	ctx, span := m.tracer.Start(c.Ctx, "command."+string(c.Command.Type),
		trace.WithAttributes(
			attribute.String("command.source", c.Source),
			attribute.String("command.input", c.RawInput),
			attribute.String("command.target", c.Command.Target),
		))
	defer span.End()

	parent := c.Ctx
	c.Ctx = ctx
	result := next()
	c.Ctx = parent

	span.SetAttributes(attribute.Bool("command.success", result.Success))
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}
