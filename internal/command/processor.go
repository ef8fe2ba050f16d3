package command

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

const (
	DefaultHistorySize = 100
	DefaultUndoSize    = 20

	historySuggestWindow = 20
	unknownSuggestLimit  = 5
)

// Failure messages surfaced by the processor itself.
const (
	ErrPermissionDenied = "你没有权限执行此命令"
	ErrUnknownCommand   = "未知命令"
	ErrNothingToUndo    = "没有可以撤销的命令"
	ErrUndoUnsupported  = "该命令不支持撤销"
)

// HistoryEntry records one submitted command. Success is nil until the
// command finishes.
type HistoryEntry struct {
	Timestamp   time.Time
	RawInput    string
	CommandType CommandType
	Source      string
	Success     *bool
}

type undoEntry struct {
	ctx     *Context
	handler Handler
}

type alias struct {
	prefix      string
	replacement string
}

// Options configures a Processor.
type Options struct {
	HistorySize int
	UndoSize    int
	Parser      Parser
}

// Processor routes commands through permissions, history, middleware and
// handler dispatch. It is not safe for concurrent use; submit one command
// at a time per session.
type Processor struct {
	state  *state.Manager
	output output.Sink
	parser Parser

	handlers    map[CommandType][]Handler
	registry    map[string]Handler
	middlewares []Middleware
	aliases     []alias
	permissions map[string]map[CommandType]bool

	history     []HistoryEntry
	undo        []undoEntry
	historySize int
	undoSize    int
}

// NewProcessor creates a processor with the default permission table.
func NewProcessor(sm *state.Manager, out output.Sink, opts Options) *Processor {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.UndoSize <= 0 {
		opts.UndoSize = DefaultUndoSize
	}
	if opts.Parser == nil {
		opts.Parser = NewPatternParser()
	}
	if out == nil {
		out = output.Discard
	}
	p := &Processor{
		state:       sm,
		output:      out,
		parser:      opts.Parser,
		handlers:    make(map[CommandType][]Handler),
		registry:    make(map[string]Handler),
		permissions: make(map[string]map[CommandType]bool),
		historySize: opts.HistorySize,
		undoSize:    opts.UndoSize,
	}
	p.SetPermissions(SourcePlayer, AllCommandTypes())
	p.SetPermissions(SourceNPC, []CommandType{Talk, Trade})
	p.SetPermissions(SourceSystem, AllCommandTypes())
	return p
}

// Parser returns the processor's parser.
func (p *Processor) Parser() Parser {
	return p.parser
}

// =============================================================================
// Registration
// =============================================================================

// RegisterHandler adds h to the list of each type it serves, after any
// handler of equal or higher priority.
func (p *Processor) RegisterHandler(h Handler) {
	if old, ok := p.registry[h.Name()]; ok {
		p.removeFromTypes(old)
	}
	for _, ct := range h.CommandTypes() {
		list := p.handlers[ct]
		pos := len(list)
		for i, existing := range list {
			if h.Priority() > existing.Priority() {
				pos = i
				break
			}
		}
		p.handlers[ct] = slices.Insert(list, pos, h)
	}
	p.registry[h.Name()] = h
	logger.Debug("Registered command handler", "handler", h.Name(), "priority", h.Priority().String())
}

// UnregisterHandler removes a handler by name. It reports whether one was
// registered.
func (p *Processor) UnregisterHandler(name string) bool {
	h, ok := p.registry[name]
	if !ok {
		return false
	}
	delete(p.registry, name)
	p.removeFromTypes(h)
	logger.Debug("Unregistered command handler", "handler", name)
	return true
}

func (p *Processor) removeFromTypes(h Handler) {
	for _, ct := range h.CommandTypes() {
		p.handlers[ct] = slices.DeleteFunc(p.handlers[ct], func(x Handler) bool {
			return x.Name() == h.Name()
		})
		if len(p.handlers[ct]) == 0 {
			delete(p.handlers, ct)
		}
	}
}

// Handler looks up a registered handler by name.
func (p *Processor) Handler(name string) (Handler, bool) {
	h, ok := p.registry[name]
	return h, ok
}

// Handlers returns the handlers for a type in dispatch order.
func (p *Processor) Handlers(ct CommandType) []Handler {
	return slices.Clone(p.handlers[ct])
}

// AddMiddleware appends mw. The last middleware added is the outermost
// wrapper and sees the command first.
func (p *Processor) AddMiddleware(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	logger.Debug("Added middleware", "middleware", mw.Name())
}

// AddAlias registers a case-insensitive prefix substitution applied before
// parsing. Re-adding an alias replaces its substitution in place.
func (p *Processor) AddAlias(prefix, replacement string) {
	prefix = strings.ToLower(prefix)
	for i := range p.aliases {
		if p.aliases[i].prefix == prefix {
			p.aliases[i].replacement = replacement
			return
		}
	}
	p.aliases = append(p.aliases, alias{prefix: prefix, replacement: replacement})
}

// SetPermissions replaces the command types a source may issue.
func (p *Processor) SetPermissions(source string, types []CommandType) {
	set := make(map[CommandType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	p.permissions[source] = set
}

// Permissions returns the command types a source may issue, sorted.
func (p *Processor) Permissions(source string) []CommandType {
	var out []CommandType
	for t := range p.permissions[source] {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func (p *Processor) allowed(source string, ct CommandType) bool {
	return p.permissions[source][ct]
}

// =============================================================================
// Processing
// =============================================================================

// ProcessCommand runs one command line synchronously.
func (p *Processor) ProcessCommand(raw, source string) Result {
	return p.Process(context.Background(), raw, source)
}

// ProcessAsync runs one command on a new goroutine and delivers its result.
// The caller must not submit another command for the same session until the
// result arrives. Handlers observe ctx through Context.Ctx.
func (p *Processor) ProcessAsync(ctx context.Context, raw, source string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		ch <- p.Process(ctx, raw, source)
	}()
	return ch
}

// Process runs the full pipeline: preprocess, parse, permission check,
// history, middleware and dispatch. Gameplay failures are reported in the
// result; Process does not panic on a failing handler.
func (p *Processor) Process(ctx context.Context, raw, source string) Result {
	return p.process(ctx, raw, source, false)
}

func (p *Processor) process(ctx context.Context, raw, source string, redirected bool) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	processed := p.preprocess(raw)
	parsed := p.parser.Parse(processed)

	c := &Context{
		Ctx:      ctx,
		Command:  parsed,
		State:    p.state,
		Output:   p.output,
		RawInput: raw,
		Source:   source,
		Metadata: map[string]any{},
	}

	if !p.allowed(source, parsed.Type) {
		logger.Info("Command rejected by permissions", "source", source, "type", string(parsed.Type))
		return Failure(ErrPermissionDenied, false)
	}

	idx := p.recordHistory(c)
	result := p.runMiddleware(c)
	if idx < len(p.history) {
		ok := result.Success
		p.history[idx].Success = &ok
	}

	if target, isRedirect := result.RedirectTarget(); isRedirect && !redirected {
		return p.process(ctx, target, source, true)
	}
	return result
}

// preprocess trims the input and applies the first matching alias.
func (p *Processor) preprocess(raw string) string {
	processed := strings.TrimSpace(raw)
	for _, a := range p.aliases {
		n := len(a.prefix)
		if len(processed) >= n && strings.EqualFold(processed[:n], a.prefix) {
			return a.replacement + processed[n:]
		}
	}
	return processed
}

func (p *Processor) recordHistory(c *Context) int {
	p.history = append(p.history, HistoryEntry{
		Timestamp:   time.Now(),
		RawInput:    c.RawInput,
		CommandType: c.Command.Type,
		Source:      c.Source,
	})
	if n := len(p.history); n > p.historySize {
		p.history = append([]HistoryEntry(nil), p.history[n-p.historySize:]...)
	}
	return len(p.history) - 1
}

// runMiddleware wraps dispatch so that the last added middleware is the
// outermost layer.
func (p *Processor) runMiddleware(c *Context) Result {
	next := func() Result { return p.dispatch(c) }
	for _, mw := range p.middlewares {
		if d, ok := mw.(interface{ Enabled() bool }); ok && !d.Enabled() {
			continue
		}
		mw, inner := mw, next
		next = func() Result { return mw.Process(c, inner) }
	}
	return next()
}

// dispatch selects the first enabled handler that accepts the context.
func (p *Processor) dispatch(c *Context) Result {
	ct := c.Command.Type
	if ct == Unknown {
		return p.handleUnknown(c)
	}

	for _, h := range p.handlers[ct] {
		if !h.Enabled() || !h.CanHandle(c) {
			continue
		}
		if err := h.Validate(c); err != nil {
			return Failure(err.Error(), true)
		}
		result := p.execute(h, c)
		if result.Success {
			if _, ok := h.(Undoer); ok {
				p.pushUndo(c, h)
			}
		}
		return result
	}

	return Failure(fmt.Sprintf("无法处理命令: %s", ct), false).
		With("suggestions", p.suggestFor(c.RawInput))
}

// execute runs Handle, converting a panic into a failure result.
func (p *Processor) execute(h Handler, c *Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Command handler failed",
				"handler", h.Name(),
				"input", c.RawInput,
				"error", fmt.Sprint(r))
			result = Failure(fmt.Sprintf("命令执行失败: %v", r), false)
		}
	}()
	return h.Handle(c)
}

func (p *Processor) pushUndo(c *Context, h Handler) {
	p.undo = append(p.undo, undoEntry{ctx: c, handler: h})
	if n := len(p.undo); n > p.undoSize {
		p.undo = append([]undoEntry(nil), p.undo[n-p.undoSize:]...)
	}
}

func (p *Processor) handleUnknown(c *Context) Result {
	suggestions := p.suggestFor(c.RawInput)
	if len(suggestions) > 0 {
		c.write(output.Warning, "无法识别的命令。")
		c.write(output.Info, "你是想输入：")
		for _, s := range suggestions[:min(len(suggestions), unknownSuggestLimit)] {
			c.write(output.Info, "  - "+s)
		}
	} else {
		c.write(output.Error, "无法识别的命令。输入 '帮助' 查看可用命令。")
	}
	return Failure(ErrUnknownCommand, true).With("suggestions", suggestions)
}

// suggestFor returns Suggestions for input minus the input itself.
func (p *Processor) suggestFor(input string) []string {
	input = strings.TrimSpace(input)
	return slices.DeleteFunc(p.Suggestions(input), func(s string) bool {
		return s == input
	})
}

// =============================================================================
// Queries
// =============================================================================

// Suggestions merges parser suggestions, alias prefixes and recent history
// inputs that start with partial, without duplicates.
func (p *Processor) Suggestions(partial string) []string {
	partial = strings.TrimSpace(partial)
	candidates := p.parser.Suggest(partial)

	lower := strings.ToLower(partial)
	for _, a := range p.aliases {
		if strings.HasPrefix(a.prefix, lower) {
			candidates = append(candidates, a.prefix)
		}
	}

	start := max(len(p.history)-historySuggestWindow, 0)
	for _, e := range p.history[start:] {
		if strings.HasPrefix(e.RawInput, partial) {
			candidates = append(candidates, e.RawInput)
		}
	}
	return dedupe(candidates)
}

// UndoLast reverses the most recent undoable command.
func (p *Processor) UndoLast() (result Result) {
	if len(p.undo) == 0 {
		return Failure(ErrNothingToUndo, false)
	}
	entry := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]

	u, ok := entry.handler.(Undoer)
	if !ok {
		return Failure(ErrUndoUnsupported, false)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Undo failed", "handler", entry.handler.Name(), "error", fmt.Sprint(r))
			result = Failure(fmt.Sprintf("撤销失败: %v", r), false)
		}
	}()
	result = u.Undo(entry.ctx)
	if result.Success {
		p.output.Write(output.Success, "命令已撤销")
	}
	return result
}

// UndoDepth returns the number of undoable commands held.
func (p *Processor) UndoDepth() int {
	return len(p.undo)
}

// Help returns the help of every handler for ct, or the global listing when
// ct is empty.
func (p *Processor) Help(ct CommandType) string {
	if ct == "" {
		return p.parser.HelpText()
	}
	handlers := p.handlers[ct]
	if len(handlers) == 0 {
		return fmt.Sprintf("没有找到 %s 命令的帮助信息", ct)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s 命令帮助 ===\n\n", ct)
	for _, h := range handlers {
		sb.WriteString(h.Help())
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// History returns up to the last n entries, oldest first. n <= 0 returns
// everything held.
func (p *Processor) History(n int) []HistoryEntry {
	start := 0
	if n > 0 {
		start = max(len(p.history)-n, 0)
	}
	return slices.Clone(p.history[start:])
}

// ClearHistory drops the history and undo stacks.
func (p *Processor) ClearHistory() {
	p.history = nil
	p.undo = nil
}
