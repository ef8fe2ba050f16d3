package command

import (
	"errors"

	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// DefaultSaveSlot is used when SAVE or LOAD names no slot.
const DefaultSaveSlot = "quicksave"

// FlagQuitRequested is set when the player asks to leave the game.
const FlagQuitRequested = "quit_requested"

func slotParam(c *Context) (string, error) {
	slot := c.Command.Param("slot")
	if slot == "" {
		slot = DefaultSaveSlot
	}
	return slot, state.ValidateSlotName(slot)
}

func storeFailure(c *Context, err error, verb string) Result {
	switch {
	case errors.Is(err, state.ErrNoStore):
		c.write(output.Error, "没有配置存档位置，无法"+verb)
	case errors.Is(err, state.ErrSlotNotFound):
		c.write(output.Error, "存档不存在")
	default:
		c.writef(output.Error, "%s失败：%v", verb, err)
	}
	return Failure(verb+"失败", true)
}

// SaveHandler writes the game to a slot.
type SaveHandler struct {
	BaseHandler
}

// NewSaveHandler returns the SAVE handler.
func NewSaveHandler() *SaveHandler {
	return &SaveHandler{NewBaseHandler("save", PriorityNormal, Save)}
}

func (h *SaveHandler) CanHandle(c *Context) bool {
	return !c.State.IsInCombat()
}

func (h *SaveHandler) Handle(c *Context) Result {
	slot, err := slotParam(c)
	if err != nil {
		c.writef(output.Error, "无效的存档名：%s", slot)
		return Failure("无效的存档名", true)
	}
	if err := c.State.SaveSlot(slot); err != nil {
		logger.Warning("Save failed", "slot", slot, "error", err)
		return storeFailure(c, err, "保存")
	}
	c.writef(output.Success, "游戏已保存到「%s」", slot)
	return Success("保存成功").With("slot", slot)
}

func (h *SaveHandler) Help() string {
	return "保存 [存档名]：保存游戏，默认存档名为 quicksave。战斗中无法保存。"
}

// LoadHandler restores the game from a slot.
type LoadHandler struct {
	BaseHandler
}

// NewLoadHandler returns the LOAD handler.
func NewLoadHandler() *LoadHandler {
	return &LoadHandler{NewBaseHandler("load", PriorityNormal, Load)}
}

func (h *LoadHandler) Handle(c *Context) Result {
	slot, err := slotParam(c)
	if err != nil {
		c.writef(output.Error, "无效的存档名：%s", slot)
		return Failure("无效的存档名", true)
	}
	if err := c.State.LoadSlot(slot); err != nil {
		logger.Warning("Load failed", "slot", slot, "error", err)
		return storeFailure(c, err, "读取")
	}
	c.writef(output.Success, "已读取存档「%s」", slot)
	if p := c.Player(); p != nil {
		c.writef(output.Info, "%s，%s第%d层，身在%s。", p.Name, p.Realm(), p.Level, c.Location())
	}
	return Success("读取成功").With("slot", slot)
}

func (h *LoadHandler) Help() string {
	return "读取 [存档名]：读取存档，默认读取 quicksave。"
}

// QuitHandler leaves a conversation or shop, or otherwise the game.
type QuitHandler struct {
	BaseHandler
}

// NewQuitHandler returns the QUIT handler.
func NewQuitHandler() *QuitHandler {
	return &QuitHandler{NewBaseHandler("quit", PriorityNormal, Quit)}
}

func (h *QuitHandler) Handle(c *Context) Result {
	switch c.GameContext() {
	case state.ContextDialogue:
		c.State.PopContext()
		c.write(output.Narrative, "你结束了对话。")
		return Success("结束对话")
	case state.ContextTrading:
		c.State.PopContext()
		c.write(output.Narrative, "你离开了商铺。")
		return Success("结束交易")
	case state.ContextCombat:
		c.write(output.Warning, "战斗中无法退出，试试 '逃跑'。")
		return Failure("战斗中无法退出", true)
	}

	c.SetFlag(FlagQuitRequested, true)
	c.write(output.System, "再会，道友。")
	return Success("退出游戏").With("quit", true)
}

func (h *QuitHandler) Help() string {
	return "退出：结束对话或交易；否则退出游戏。"
}
