package command

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/xianmud/internal/antispam"
	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestValidationMiddleware(t *testing.T) {
	p, sm, _ := newTestProcessor()
	for _, ct := range []CommandType{Move, Attack, Status, Cultivate} {
		p.RegisterHandler(newStub(string(ct), PriorityNormal, ct))
	}
	p.AddMiddleware(ValidationMiddleware{})

	if result := p.ProcessCommand("状态", SourcePlayer); result.Error != "游戏尚未开始" {
		t.Errorf("without player: %+v", result)
	}
	if result := p.ProcessCommand("状态", SourceSystem); !result.Success {
		t.Errorf("system source should not need a player: %+v", result)
	}

	sm.SetPlayer(character.New("测试"))
	sm.StartCombat("c1")
	tests := []struct {
		input string
		ok    bool
		err   string
	}{
		{"去 青云山", false, "战斗中无法执行此命令"},
		{"攻击", true, ""},
		{"状态", true, ""},
	}
	for _, tt := range tests {
		result := p.ProcessCommand(tt.input, SourcePlayer)
		if result.Success != tt.ok || result.Error != tt.err {
			t.Errorf("in combat %q = %v %q, want %v %q", tt.input, result.Success, result.Error, tt.ok, tt.err)
		}
	}

	sm.EndCombat(nil)
	sm.PushContext(state.ContextDialogue, nil)
	if result := p.ProcessCommand("修炼", SourcePlayer); result.Error != "对话中无法执行此命令" {
		t.Errorf("cultivate in dialogue: %+v", result)
	}
	if result := p.ProcessCommand("状态", SourcePlayer); !result.Success {
		t.Errorf("status in dialogue: %+v", result)
	}
}

func TestCooldownMiddleware(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tracker := antispam.NewTracker(antispam.DefaultConfig())
	tracker.SetClock(clock.now)

	p, _, _ := newTestProcessor()
	h := newStub("cultivate", PriorityNormal, Cultivate)
	p.RegisterHandler(h)
	p.AddMiddleware(NewCooldownMiddleware(tracker, nil))

	if result := p.ProcessCommand("修炼", SourcePlayer); !result.Success {
		t.Fatalf("first: %+v", result)
	}
	result := p.ProcessCommand("修炼", SourcePlayer)
	if result.Success || !strings.Contains(result.Error, "命令冷却中") {
		t.Errorf("second: %+v", result)
	}
	if result := p.ProcessCommand("修炼", SourceSystem); !result.Success {
		t.Errorf("cooldowns are per source: %+v", result)
	}

	clock.advance(5 * time.Second)
	if result := p.ProcessCommand("修炼", SourcePlayer); !result.Success {
		t.Errorf("after cooldown: %+v", result)
	}
	if h.calls != 3 {
		t.Errorf("handler calls = %d, want 3", h.calls)
	}
}

func TestCooldownStartsOnlyOnSuccess(t *testing.T) {
	tracker := antispam.NewTracker(antispam.DefaultConfig())
	p, _, _ := newTestProcessor()
	h := newStub("cultivate", PriorityNormal, Cultivate)
	h.result = Failure("体力不足", true)
	p.RegisterHandler(h)
	p.AddMiddleware(NewCooldownMiddleware(tracker, nil))

	p.ProcessCommand("修炼", SourcePlayer)
	p.ProcessCommand("修炼", SourcePlayer)
	if h.calls != 2 {
		t.Errorf("handler calls = %d, failed commands must not start a cooldown", h.calls)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	tracker := antispam.NewTracker(antispam.Config{Enabled: true, MaxCommands: 2, TimeWindow: time.Minute})
	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	p.AddMiddleware(NewRateLimitMiddleware(tracker))

	for i := range 2 {
		if result := p.ProcessCommand("状态", SourcePlayer); !result.Success {
			t.Fatalf("command %d: %+v", i, result)
		}
	}
	result := p.ProcessCommand("状态", SourcePlayer)
	if result.Success || !strings.Contains(result.Error, "命令太频繁") {
		t.Errorf("third command: %+v", result)
	}
	if !result.ContinueProcessing {
		t.Error("rate limit failures should allow retry")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, "info")

	p, _, _ := newTestProcessor()
	p.RegisterHandler(newStub("status", PriorityNormal, Status))
	p.AddMiddleware(LoggingMiddleware{})
	p.ProcessCommand("状态", SourcePlayer)

	out := buf.String()
	for _, want := range []string{"Executing command", "Command finished", "type=status"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	p, _, _ := newTestProcessor()
	ok := newStub("status", PriorityNormal, Status)
	bad := newStub("map", PriorityNormal, Map)
	bad.result = Failure("迷路了", true)
	p.RegisterHandler(ok)
	p.RegisterHandler(bad)
	p.AddMiddleware(NewTracingMiddleware(provider.Tracer("test")))

	p.ProcessCommand("状态", SourcePlayer)
	p.ProcessCommand("地图", SourcePlayer)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "command.status" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "迷路了" {
		t.Errorf("failed span status = %+v", spans[1].Status())
	}
	if !trace.SpanFromContext(ok.lastCtx).SpanContext().IsValid() {
		t.Error("handler context should carry the command span")
	}
}
