package command

import (
	"fmt"
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/npc"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// Currency is the item merchants take as payment.
const Currency = "灵石"

// localNPC finds a non-hostile NPC at the location by id or name.
func localNPC(content *Content, location, name string) (*npc.NPC, bool) {
	n, ok := content.NPCs.Find(name)
	if !ok || n.Location != location || n.Hostile {
		return nil, false
	}
	return n, true
}

func ensureNPC(c *Context, n *npc.NPC) {
	if _, ok := c.State.NPC(n.ID); !ok {
		c.State.AddNPC(n.Character())
	}
}

// TalkHandler opens a conversation. Each conversation nudges the NPC's
// relationship by its affinity.
type TalkHandler struct {
	BaseHandler
	content *Content
}

// NewTalkHandler returns the TALK handler.
func NewTalkHandler(content *Content) *TalkHandler {
	return &TalkHandler{
		BaseHandler: NewBaseHandler("dialogue", PriorityNormal, Talk),
		content:     content,
	}
}

func (h *TalkHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *TalkHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *TalkHandler) Handle(c *Context) Result {
	target := c.Command.Target
	if target == "" {
		c.write(output.Error, "你想和谁说话？")
		return Failure("未指定对象", true)
	}
	n, ok := localNPC(h.content, c.Location(), target)
	if !ok {
		c.writef(output.Info, "这里没有%s", target)
		return Failure("找不到对象", true)
	}

	ensureNPC(c, n)
	if c.GameContext() == state.ContextDialogue {
		c.State.PopContext()
	}
	c.State.PushContext(state.ContextDialogue, map[string]any{"npc_id": n.ID})

	key := "talks:" + n.ID
	count, _ := toInt(c.Flag(key, 0))
	c.SetFlag(key, count+1)

	c.writef(output.Narrative, "%s：「%s」", n.Name, n.Line(count))
	relation := c.State.UpdateNPCRelationship(n.ID, n.Affinity)
	if n.IsMerchant() {
		c.writef(output.Info, "输入 '交易 %s' 查看货物。", n.Name)
	}
	c.write(output.System, "输入 '退出' 结束对话。")
	c.State.UpdateStatistic("conversations", 1)

	return Success("与"+n.Name+"交谈").With("npc_id", n.ID).With("relationship", relation)
}

func (h *TalkHandler) Help() string {
	return `对话命令：和 <NPC> 说话

用法：
  和 李长老 说话
  对话 王掌柜

说明：
  与NPC交谈，多交谈可以提升好感。输入 '退出' 结束对话。`
}

// TradeHandler shows a merchant's wares, or buys one when the target is an
// item the local merchant sells.
type TradeHandler struct {
	BaseHandler
	content *Content
}

// NewTradeHandler returns the TRADE handler.
func NewTradeHandler(content *Content) *TradeHandler {
	return &TradeHandler{
		BaseHandler: NewBaseHandler("trade", PriorityNormal, Trade),
		content:     content,
	}
}

func (h *TradeHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *TradeHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *TradeHandler) merchants(location string) []*npc.NPC {
	var out []*npc.NPC
	for _, n := range h.content.NPCs.AtLocation(location) {
		if n.IsMerchant() && !n.Hostile {
			out = append(out, n)
		}
	}
	return out
}

func (h *TradeHandler) price(s npc.ShopItem) int {
	if s.Price > 0 {
		return s.Price
	}
	if item, ok := h.content.Items.Get(s.ItemName); ok {
		return item.Price
	}
	return 0
}

func (h *TradeHandler) Handle(c *Context) Result {
	location := c.Location()
	merchants := h.merchants(location)
	if len(merchants) == 0 {
		c.write(output.Info, "这里没有商人。")
		return Failure("没有商人", true)
	}

	target := c.Command.Target
	merchant := merchants[0]
	if target != "" {
		if n, ok := localNPC(h.content, location, target); ok {
			if !n.IsMerchant() {
				c.writef(output.Info, "%s不做买卖。", n.Name)
				return Failure("对方不是商人", true)
			}
			merchant = n
		} else {
			for _, m := range merchants {
				for _, s := range m.Shop {
					if s.ItemName == target {
						return h.buy(c, m, s)
					}
				}
			}
			c.writef(output.Info, "这里没有出售%s", target)
			return Failure("没有该商品", true)
		}
	}

	ensureNPC(c, merchant)
	if c.GameContext() != state.ContextTrading {
		c.State.PushContext(state.ContextTrading, map[string]any{"npc_id": merchant.ID})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s的货物 ===", merchant.Name)
	for _, s := range merchant.Shop {
		fmt.Fprintf(&sb, "\n  %-10s %4d %s", s.ItemName, h.price(s), Currency)
	}
	c.write(output.Info, sb.String())
	c.writef(output.System, "你有 %d %s。输入 '购买 <物品>' 购买，'退出' 离开。", c.Player().Inventory[Currency], Currency)
	return Success("打开商店").With("npc_id", merchant.ID)
}

func (h *TradeHandler) buy(c *Context, merchant *npc.NPC, s npc.ShopItem) Result {
	p := c.Player()
	price := h.price(s)
	if !p.RemoveItems(Currency, price) {
		c.writef(output.Error, "%s不足，需要%d", Currency, price)
		return Failure(Currency+"不足", true)
	}
	p.AddItem(s.ItemName, 1)
	ensureNPC(c, merchant)
	c.State.UpdateNPCRelationship(merchant.ID, 1)
	c.State.UpdateStatistic("items_bought", 1)
	c.writef(output.Success, "你花费 %d %s 购买了%s", price, Currency, s.ItemName)
	return Success("购买了"+s.ItemName).With("item", s.ItemName).With("price", price)
}

func (h *TradeHandler) Help() string {
	return `交易命令：
  交易 [NPC]   - 查看商人的货物
  购买 <物品>  - 用灵石购买物品`
}
