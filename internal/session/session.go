// Package session assembles one player's game: state, processor, handlers
// and middleware, built from configuration.
package session

import (
	"bufio"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lawnchairsociety/xianmud/internal/antispam"
	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/command"
	"github.com/lawnchairsociety/xianmud/internal/config"
	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// StarterSkill is known by every new character.
const StarterSkill = "基础剑法"

// DefaultPlayerName names a character created without one.
const DefaultPlayerName = "无名修士"

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Config     *config.GameConfig
	Content    *command.Content
	Store      state.SlotStore
	Output     output.Sink
	Tracer     trace.Tracer
	PlayerName string
}

// Session owns the state manager and processor for one player.
type Session struct {
	ID string

	state  *state.Manager
	proc   *command.Processor
	out    *countingSink
	source atomic.Value
}

// New builds a session with a fresh character at the starting location.
//
// Middlewares are added innermost first, so a command passes through
// logging, tracing, rate limit, cooldown and validation in that order
// before reaching its handler.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	content := opts.Content
	if content == nil {
		content = command.DefaultContent()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("xianmud")
	}
	sink := opts.Output
	if sink == nil {
		sink = output.Discard
	}

	s := &Session{
		ID:  uuid.NewString(),
		out: &countingSink{next: sink},
	}
	s.source.Store(command.SourcePlayer)

	s.state = state.NewManager(stateConfig(cfg, opts.Store))
	name := strings.TrimSpace(opts.PlayerName)
	if name == "" {
		name = DefaultPlayerName
	}
	player := character.New(name)
	player.LearnSkill(StarterSkill)
	s.state.SetPlayer(player)

	s.proc = command.NewProcessor(s.state, s.out, command.Options{
		HistorySize: cfg.Commands.HistorySize,
		UndoSize:    cfg.Commands.UndoSize,
	})
	command.RegisterDefaults(s.proc, content)

	for _, prefix := range slices.Sorted(maps.Keys(cfg.Commands.Aliases)) {
		s.proc.AddAlias(prefix, cfg.Commands.Aliases[prefix])
	}
	for source, names := range cfg.Commands.Permissions {
		s.proc.SetPermissions(source, commandTypes(names))
	}

	rate := cfg.Commands.RateLimit
	s.proc.AddMiddleware(command.ValidationMiddleware{})
	s.proc.AddMiddleware(command.NewCooldownMiddleware(
		antispam.NewTracker(antispam.DefaultConfig()), cooldowns(cfg.Commands)))
	s.proc.AddMiddleware(command.NewRateLimitMiddleware(
		antispam.NewTracker(antispam.ConfigFromYAML(rate.Enabled, rate.MaxCommands, rate.WindowSeconds))))
	s.proc.AddMiddleware(command.NewTracingMiddleware(tracer))
	s.proc.AddMiddleware(command.LoggingMiddleware{})

	logger.Debug("Session created", "session", s.ID, "player", name)
	return s
}

// commandTypes expands a permission list; "*" grants everything.
func commandTypes(names []string) []command.CommandType {
	var types []command.CommandType
	for _, n := range names {
		if n == "*" {
			return command.AllCommandTypes()
		}
		if ct, ok := command.ParseCommandType(strings.ToLower(n)); ok {
			types = append(types, ct)
		} else {
			logger.Warning("Unknown command type in permissions", "type", n)
		}
	}
	return types
}

func cooldowns(c config.CommandsConfig) map[command.CommandType]time.Duration {
	out := map[command.CommandType]time.Duration{}
	for _, ct := range command.AllCommandTypes() {
		if d := c.CooldownFor(string(ct)); d > 0 {
			out[ct] = d
		}
	}
	return out
}

// State returns the session's state manager.
func (s *Session) State() *state.Manager { return s.state }

// Processor returns the session's command processor.
func (s *Session) Processor() *command.Processor { return s.proc }

// Source is the command source this session submits as.
func (s *Session) Source() string { return s.source.Load().(string) }

// SetSource changes the command source, e.g. to elevate an operator to
// command.SourceSystem.
func (s *Session) SetSource(source string) { s.source.Store(source) }

// Handle runs one command line, then gives auto-save a chance to fire. A
// failure nothing was written for is reported on the sink.
func (s *Session) Handle(ctx context.Context, line string) command.Result {
	before := s.out.count.Load()
	result := s.proc.Process(ctx, line, s.Source())
	if !result.Success && result.Error != "" && s.out.count.Load() == before {
		s.out.Write(output.Error, result.Error)
	}

	if saved, err := s.state.CheckAutoSave(); err != nil {
		logger.Warning("Auto-save failed", "session", s.ID, "error", err)
	} else if saved {
		s.out.Write(output.System, "游戏已自动保存")
	}
	return result
}

// QuitRequested reports whether the player asked to leave.
func (s *Session) QuitRequested() bool {
	v, _ := s.state.Flag(command.FlagQuitRequested, false).(bool)
	return v
}

// Run reads command lines from r until EOF, a quit or ctx ends.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	s.out.Write(output.Narrative, "欢迎来到修仙世界！输入 '帮助' 查看可用命令。")

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.Handle(ctx, line)
		if s.QuitRequested() {
			return nil
		}
	}
	return scanner.Err()
}

// countingSink forwards messages and counts them.
type countingSink struct {
	next  output.Sink
	count atomic.Int64
}

func (c *countingSink) Write(t output.MessageType, msg string) {
	c.count.Add(1)
	c.next.Write(t, msg)
}
