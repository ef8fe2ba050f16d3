package testclient

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const waitTimeout = 2 * time.Second

var uniqueCounter uint64

// uniqueName returns base with a Han numeral suffix so repeated runs
// against one server don't collide with players still online.
func uniqueName(base string) string {
	digits := []rune("零一二三四五六七八九")
	n := atomic.AddUint64(&uniqueCounter, 1)
	var sb strings.Builder
	for _, d := range fmt.Sprint(n) {
		sb.WriteRune(digits[d-'0'])
	}
	return base + sb.String()
}

// Verbose prints each step as it runs.
var Verbose = false

// Result is the outcome of one scenario.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

// Scenario runs against a server at addr.
type Scenario struct {
	Name string
	Run  func(addr string) Result
}

func logAction(scenario, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", scenario, action)
	}
}

func pass(name string) Result { return Result{Name: name, Passed: true} }

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Message: fmt.Sprintf(format, args...)}
}

// expectAfter clears the buffer, sends cmd and waits for want.
func expectAfter(c *TestClient, scenario, cmd string, want ...string) (string, bool) {
	c.ClearMessages()
	logAction(scenario, "send "+cmd)
	if err := c.SendCommand(cmd); err != nil {
		return "", false
	}
	return c.WaitForAnyMessage(want, waitTimeout)
}

// Scenarios is the default integration suite.
var Scenarios = []Scenario{
	{"进入游戏", testConnect},
	{"查看状态", testStatus},
	{"地图与移动", testMove},
	{"修炼", testCultivate},
	{"存档与读取", testSaveLoad},
	{"未知命令", testUnknownCommand},
	{"道号重复", testDuplicateName},
	{"退出游戏", testQuit},
}

// RunAll runs every scenario in order.
func RunAll(addr string) []Result {
	results := make([]Result, 0, len(Scenarios))
	for _, s := range Scenarios {
		logAction(s.Name, "start")
		results = append(results, s.Run(addr))
	}
	return results
}

// PrintResults writes a summary of results.
func PrintResults(results []Result) {
	passed := 0
	for _, r := range results {
		status := "PASS"
		if r.Passed {
			passed++
		} else {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s", status, r.Name)
		if r.Message != "" {
			fmt.Printf(": %s", r.Message)
		}
		fmt.Println()
	}
	fmt.Printf("\n%d/%d passed\n", passed, len(results))
}

func testConnect(addr string) Result {
	name := "进入游戏"
	c, err := Connect(uniqueName("试剑"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	return pass(name)
}

func testStatus(addr string) Result {
	name := "查看状态"
	c, err := Connect(uniqueName("观心"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "状态", "境界："); !ok {
		return fail(name, "no realm line, got %v", c.GetMessages())
	}
	return pass(name)
}

func testMove(addr string) Result {
	name := "地图与移动"
	c, err := Connect(uniqueName("行者"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "地图", "当前位置"); !ok {
		return fail(name, "map missing, got %v", c.GetMessages())
	}
	if _, ok := expectAfter(c, name, "去 青云山", "你离开了", "无法", "你已经在"); !ok {
		return fail(name, "move gave no answer, got %v", c.GetMessages())
	}
	return pass(name)
}

func testCultivate(addr string) Result {
	name := "修炼"
	c, err := Connect(uniqueName("打坐"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "修炼", "点修为", "体力不足"); !ok {
		return fail(name, "no cultivation result, got %v", c.GetMessages())
	}
	return pass(name)
}

func testSaveLoad(addr string) Result {
	name := "存档与读取"
	c, err := Connect(uniqueName("存真"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "保存 测试", "游戏已保存", "没有配置存档位置"); !ok {
		return fail(name, "save gave no answer, got %v", c.GetMessages())
	}
	if c.HasMessage("没有配置存档位置") {
		return pass(name)
	}
	if _, ok := expectAfter(c, name, "读取 测试", "已读取存档"); !ok {
		return fail(name, "load failed, got %v", c.GetMessages())
	}
	return pass(name)
}

func testUnknownCommand(addr string) Result {
	name := "未知命令"
	c, err := Connect(uniqueName("问道"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "翻江倒海", "无法识别的命令", "你是想"); !ok {
		return fail(name, "unknown command accepted, got %v", c.GetMessages())
	}
	return pass(name)
}

func testDuplicateName(addr string) Result {
	name := "道号重复"
	player := uniqueName("同名")
	first, err := Connect(player, addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer first.Close()

	second, err := Dial(addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer second.Close()
	second.WaitForMessage(NamePrompt, waitTimeout)
	second.SendCommand(player)
	if !second.WaitForMessage("该道号已在游戏中", waitTimeout) {
		return fail(name, "duplicate name accepted, got %v", second.GetMessages())
	}
	return pass(name)
}

func testQuit(addr string) Result {
	name := "退出游戏"
	c, err := Connect(uniqueName("归隐"), addr)
	if err != nil {
		return fail(name, "%v", err)
	}
	defer c.Close()
	if _, ok := expectAfter(c, name, "退出", "再会"); !ok {
		return fail(name, "no farewell, got %v", c.GetMessages())
	}
	if !c.WaitForClose(waitTimeout) {
		return fail(name, "server kept the connection open")
	}
	return pass(name)
}
