package command

import (
	"context"
	"strings"
	"testing"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

type stubHandler struct {
	BaseHandler
	accept   bool
	validate error
	result   Result
	panicMsg string
	calls    int
	last     *Context
	lastCtx  context.Context
}

func newStub(name string, pr Priority, types ...CommandType) *stubHandler {
	return &stubHandler{
		BaseHandler: NewBaseHandler(name, pr, types...),
		accept:      true,
		result:      Success(name),
	}
}

func (h *stubHandler) CanHandle(*Context) bool { return h.accept }
func (h *stubHandler) Validate(*Context) error { return h.validate }

func (h *stubHandler) Handle(c *Context) Result {
	h.calls++
	h.last = c
	h.lastCtx = c.Ctx
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.result
}

type undoStub struct {
	*stubHandler
	undone []*Context
}

func (h *undoStub) Undo(c *Context) Result {
	h.undone = append(h.undone, c)
	return Success("undone")
}

func newTestProcessor() (*Processor, *state.Manager, *output.Buffer) {
	sm := state.NewManager(state.DefaultConfig())
	out := output.NewBuffer()
	return NewProcessor(sm, out, Options{}), sm, out
}

func TestAttackOutsideCombatFindsNoHandler(t *testing.T) {
	p, sm, _ := newTestProcessor()
	sm.SetPlayer(character.New("测试"))
	p.RegisterHandler(NewAttackHandler(DefaultContent()))

	result := p.ProcessCommand(" 攻击 妖兽 ", SourcePlayer)
	if result.Success {
		t.Fatal("attack outside combat should fail")
	}
	if !strings.Contains(result.Error, "无法处理命令") {
		t.Errorf("Error = %q, want no-handler failure", result.Error)
	}
	suggestions, ok := result.Data["suggestions"].([]string)
	if !ok {
		t.Fatalf("no-handler failure should carry suggestions, Data = %v", result.Data)
	}
	for _, s := range suggestions {
		if s == "攻击 妖兽" {
			t.Errorf("suggestions echo the input: %v", suggestions)
		}
	}
}

func TestHigherPriorityHandlerWins(t *testing.T) {
	p, _, _ := newTestProcessor()
	low := newStub("low", PriorityLow, Status)
	high := newStub("high", PriorityHigh, Status)
	p.RegisterHandler(low)
	p.RegisterHandler(high)

	result := p.ProcessCommand("状态", SourcePlayer)
	if !result.Success || result.Message != "high" {
		t.Fatalf("result = %+v, want high handler", result)
	}
	if low.calls != 0 {
		t.Errorf("low priority handler called %d times", low.calls)
	}
}

func TestEqualPriorityKeepsInsertionOrder(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("first", PriorityNormal, Status))
	p.RegisterHandler(newStub("second", PriorityNormal, Status))
	p.RegisterHandler(newStub("system", PrioritySystem, Status))

	var names []string
	for _, h := range p.Handlers(Status) {
		names = append(names, h.Name())
	}
	if got := strings.Join(names, ","); got != "system,first,second" {
		t.Errorf("dispatch order = %s", got)
	}
}

func TestDispatchSkipsRejectingAndDisabledHandlers(t *testing.T) {
	p, _, _ := newTestProcessor()
	rejecting := newStub("rejecting", PriorityHigh, Status)
	rejecting.accept = false
	disabled := newStub("disabled", PriorityCritical, Status)
	disabled.SetEnabled(false)
	fallback := newStub("fallback", PriorityLow, Status)
	p.RegisterHandler(rejecting)
	p.RegisterHandler(disabled)
	p.RegisterHandler(fallback)

	result := p.ProcessCommand("状态", SourcePlayer)
	if result.Message != "fallback" {
		t.Errorf("Message = %q, want fallback", result.Message)
	}
	if rejecting.calls+disabled.calls != 0 {
		t.Error("skipped handlers must not run")
	}
}

func TestValidationFailureSkipsHandle(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("checked", PriorityNormal, Status)
	h.validate = errNotStarted
	p.RegisterHandler(h)

	result := p.ProcessCommand("状态", SourcePlayer)
	if result.Success || result.Error != errNotStarted.Error() {
		t.Errorf("result = %+v", result)
	}
	if !result.ContinueProcessing {
		t.Error("validation failures should allow retry")
	}
	if h.calls != 0 {
		t.Error("Handle ran after failed validation")
	}
}

func TestPermissionDenied(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("attack", PriorityNormal, Attack)
	p.RegisterHandler(h)

	result := p.ProcessCommand("攻击 妖兽", SourceNPC)
	if result.Success || result.Error != ErrPermissionDenied {
		t.Errorf("result = %+v, want permission failure", result)
	}
	if h.calls != 0 {
		t.Error("handler ran for a denied source")
	}
	if n := len(p.History(0)); n != 0 {
		t.Errorf("history has %d entries after a denied command", n)
	}

	p.SetPermissions(SourceNPC, []CommandType{Attack})
	if result := p.ProcessCommand("攻击 妖兽", SourceNPC); !result.Success {
		t.Errorf("after granting: %+v", result)
	}
}

func TestHistoryRecordsOutcome(t *testing.T) {
	p, _, _ := newTestProcessor()
	ok := newStub("ok", PriorityNormal, Status)
	bad := newStub("bad", PriorityNormal, Map)
	bad.result = Failure("nope", true)
	p.RegisterHandler(ok)
	p.RegisterHandler(bad)

	p.ProcessCommand("状态", SourcePlayer)
	p.ProcessCommand("地图", SourceSystem)

	h := p.History(0)
	if len(h) != 2 {
		t.Fatalf("history length = %d", len(h))
	}
	if h[0].CommandType != Status || h[0].Success == nil || !*h[0].Success {
		t.Errorf("first entry = %+v", h[0])
	}
	if h[1].Source != SourceSystem || h[1].Success == nil || *h[1].Success {
		t.Errorf("second entry = %+v", h[1])
	}
	if last := p.History(1); len(last) != 1 || last[0].RawInput != "地图" {
		t.Errorf("History(1) = %+v", last)
	}

	p.ClearHistory()
	if len(p.History(0)) != 0 {
		t.Error("ClearHistory left entries")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	sm := state.NewManager(state.DefaultConfig())
	p := NewProcessor(sm, nil, Options{HistorySize: 3})
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	for range 5 {
		p.ProcessCommand("状态", SourcePlayer)
	}
	if n := len(p.History(0)); n != 3 {
		t.Errorf("history length = %d, want 3", n)
	}
}

func TestHandlerPanicBecomesFailure(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("boom", PriorityNormal, Status)
	h.panicMsg = "kaboom"
	p.RegisterHandler(h)

	result := p.ProcessCommand("状态", SourcePlayer)
	if result.Success || !strings.Contains(result.Error, "kaboom") {
		t.Errorf("result = %+v", result)
	}
}

func TestUndo(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := &undoStub{stubHandler: newStub("undoable", PriorityNormal, Move)}
	p.RegisterHandler(h)

	p.ProcessCommand("去 青云山", SourcePlayer)
	if p.UndoDepth() != 1 {
		t.Fatalf("UndoDepth = %d", p.UndoDepth())
	}

	result := p.UndoLast()
	if !result.Success {
		t.Fatalf("UndoLast = %+v", result)
	}
	if len(h.undone) != 1 || h.undone[0] != h.last {
		t.Error("Undo should receive the original context")
	}

	if result := p.UndoLast(); result.Success || result.Error != ErrNothingToUndo {
		t.Errorf("second UndoLast = %+v", result)
	}
}

func TestFailedCommandIsNotUndoable(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := &undoStub{stubHandler: newStub("undoable", PriorityNormal, Move)}
	h.result = Failure("stuck", true)
	p.RegisterHandler(h)

	p.ProcessCommand("去 青云山", SourcePlayer)
	if p.UndoDepth() != 0 {
		t.Errorf("UndoDepth = %d after failure", p.UndoDepth())
	}
}

func TestUnregisterHandler(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	if !p.UnregisterHandler("status") {
		t.Fatal("UnregisterHandler returned false")
	}
	if p.UnregisterHandler("status") {
		t.Error("second UnregisterHandler should report false")
	}
	if _, ok := p.Handler("status"); ok {
		t.Error("handler still indexed by name")
	}
	if result := p.ProcessCommand("状态", SourcePlayer); result.Success {
		t.Error("command dispatched to removed handler")
	}
}

func TestAliasIsCaseInsensitivePrefix(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("attack", PriorityNormal, Attack)
	p.RegisterHandler(h)
	p.AddAlias("gg", "攻击")

	if result := p.ProcessCommand("GG 妖兽", SourcePlayer); !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if h.last.Command.Target != "妖兽" {
		t.Errorf("Target = %q", h.last.Command.Target)
	}
	if h.last.RawInput != "GG 妖兽" {
		t.Errorf("RawInput = %q, want the unprocessed text", h.last.RawInput)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))

	var trace []string
	record := func(name string) Middleware {
		return Named(name, func(c *Context, next Next) Result {
			trace = append(trace, name+">")
			r := next()
			trace = append(trace, "<"+name)
			return r
		})
	}
	p.AddMiddleware(record("inner"))
	p.AddMiddleware(record("outer"))

	p.ProcessCommand("状态", SourcePlayer)
	if got := strings.Join(trace, " "); got != "outer> inner> <inner <outer" {
		t.Errorf("trace = %s", got)
	}
}

type switchable struct {
	Middleware
	on bool
}

func (s switchable) Enabled() bool { return s.on }

func TestDisabledMiddlewareIsSkipped(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	block := Named("block", func(*Context, Next) Result { return Failure("blocked", false) })
	p.AddMiddleware(switchable{Middleware: block, on: false})

	if result := p.ProcessCommand("状态", SourcePlayer); !result.Success {
		t.Errorf("disabled middleware ran: %+v", result)
	}
}

func TestMiddlewareCanShortCircuit(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("status", PriorityNormal, Status)
	p.RegisterHandler(h)
	p.AddMiddleware(MiddlewareFunc(func(*Context, Next) Result { return Failure("blocked", true) }))

	if result := p.ProcessCommand("状态", SourcePlayer); result.Error != "blocked" {
		t.Errorf("result = %+v", result)
	}
	if h.calls != 0 {
		t.Error("handler ran behind a short-circuit")
	}
}

func TestRedirectRunsOnce(t *testing.T) {
	p, _, _ := newTestProcessor()
	status := newStub("status", PriorityNormal, Status)
	status.result = Redirect("地图")
	mapper := newStub("map", PriorityNormal, Map)
	mapper.result = Redirect("状态")
	p.RegisterHandler(status)
	p.RegisterHandler(mapper)

	result := p.ProcessCommand("状态", SourcePlayer)
	if status.calls != 1 || mapper.calls != 1 {
		t.Errorf("calls = %d,%d, want one each", status.calls, mapper.calls)
	}
	if target, ok := result.RedirectTarget(); !ok || target != "状态" {
		t.Errorf("second redirect should be returned, got %+v", result)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	p, _, out := newTestProcessor()
	result := p.ProcessCommand("修", SourcePlayer)
	if result.Success || result.Error != ErrUnknownCommand {
		t.Fatalf("result = %+v", result)
	}
	suggestions, _ := result.Data["suggestions"].([]string)
	if len(suggestions) == 0 || suggestions[0] != "修炼" {
		t.Errorf("suggestions = %v", suggestions)
	}
	if !out.Contains(output.Info, "修炼") {
		t.Error("suggestions should be written to the output")
	}

	p.ProcessCommand("zzz", SourcePlayer)
	if !out.Contains(output.Error, "无法识别的命令") {
		t.Errorf("no-suggestion output = %q", out.Text())
	}
}

func TestSuggestionsMergeSources(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	p.AddAlias("st", "状态")
	p.ProcessCommand("状态 全部", SourcePlayer)

	got := p.Suggestions("状")
	want := []string{"状态", "状态 全部"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Suggestions(状) = %v, want %v", got, want)
	}
	if got := p.Suggestions("s"); len(got) != 1 || got[0] != "st" {
		t.Errorf("Suggestions(s) = %v, want the alias", got)
	}
}

func TestHelpConcatenatesHandlers(t *testing.T) {
	p, _, _ := newTestProcessor()
	p.RegisterHandler(NewCultivateHandler(DefaultContent()))

	if text := p.Help(Cultivate); !strings.Contains(text, "修炼命令") {
		t.Errorf("Help(Cultivate) = %q", text)
	}
	if text := p.Help(""); !strings.Contains(text, "游戏命令帮助") {
		t.Errorf("global help = %q", text)
	}
	if text := p.Help(Trade); !strings.Contains(text, "没有找到") {
		t.Errorf("Help(Trade) = %q", text)
	}
}

type ctxKey struct{}

func TestProcessAsync(t *testing.T) {
	p, _, _ := newTestProcessor()
	h := newStub("status", PriorityNormal, Status)
	p.RegisterHandler(h)

	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	result := <-p.ProcessAsync(ctx, "状态", SourcePlayer)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if h.last.Ctx.Value(ctxKey{}) != "marker" {
		t.Error("handler should see the caller's context")
	}
}
