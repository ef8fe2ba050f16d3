// Package state owns the canonical game state of one session: the player,
// world flags, NPCs, quests and the stack of interaction contexts.
//
// A Manager is not safe for concurrent use. Callers serialize access per
// session, one command at a time.
package state

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/logger"
)

const (
	// MaxCombatHistory is how many finished fights are remembered.
	MaxCombatHistory = 100
	// DefaultMaxStatistics bounds the number of distinct statistic keys.
	DefaultMaxStatistics = 256
)

// Config holds Manager settings.
type Config struct {
	StartingLocation string
	MaxSnapshots     int
	MaxStatistics    int
	AutoSaveInterval time.Duration // zero disables auto-save
	AutoSaveSlot     string
	RelationshipMin  int
	RelationshipMax  int
	Store            SlotStore // slot storage for auto-save and named saves
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		StartingLocation: "青云城",
		MaxSnapshots:     10,
		MaxStatistics:    DefaultMaxStatistics,
		AutoSaveInterval: 5 * time.Minute,
		AutoSaveSlot:     "autosave",
		RelationshipMin:  -100,
		RelationshipMax:  100,
	}
}

// Manager is the single source of truth for mutable game state.
type Manager struct {
	cfg          Config
	state        *GameState
	stack        []ContextInfo
	listeners    listeners
	snapshots    []snapshot
	lastAutoSave time.Time
	now          func() time.Time
}

// NewManager creates a manager with an empty game state.
func NewManager(cfg Config) *Manager {
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = 10
	}
	if cfg.MaxStatistics <= 0 {
		cfg.MaxStatistics = DefaultMaxStatistics
	}
	if cfg.AutoSaveSlot == "" {
		cfg.AutoSaveSlot = "autosave"
	}
	if cfg.RelationshipMin > cfg.RelationshipMax {
		cfg.RelationshipMin, cfg.RelationshipMax = cfg.RelationshipMax, cfg.RelationshipMin
	}
	m := &Manager{
		cfg:   cfg,
		state: NewGameState(cfg.StartingLocation),
		now:   time.Now,
	}
	m.lastAutoSave = m.now()
	return m
}

// SetClock replaces the wall clock. The auto-save timer restarts from the
// new clock's current time.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
	m.lastAutoSave = now()
}

// State exposes the underlying game state for read access.
func (m *Manager) State() *GameState {
	return m.state
}

// Store returns the configured slot store, or nil.
func (m *Manager) Store() SlotStore {
	return m.cfg.Store
}

// AddListener registers fn for eventType and returns its removal handle.
func (m *Manager) AddListener(eventType string, fn Listener) ListenerID {
	return m.listeners.add(eventType, fn)
}

// RemoveListener unregisters a listener. It reports whether one was removed.
func (m *Manager) RemoveListener(eventType string, id ListenerID) bool {
	return m.listeners.remove(eventType, id)
}

func (m *Manager) publish(eventType string, data map[string]any) {
	m.listeners.publish(eventType, data)
}

// =============================================================================
// Context stack
// =============================================================================

// PushContext enters a new interaction mode on top of the stack. NONE and
// unknown types are refused, as is a COMBAT entry without a combat_id;
// fights start through StartCombat.
func (m *Manager) PushContext(ct ContextType, data map[string]any) bool {
	if _, known := contextNames[ct]; !known || ct == ContextNone {
		logger.Warning("Refusing context push", "context", ct.String())
		return false
	}
	if id, _ := data["combat_id"].(string); ct == ContextCombat && id == "" {
		logger.Warning("Refusing combat context without combat_id")
		return false
	}
	if data == nil {
		data = map[string]any{}
	}
	m.stack = append(m.stack, ContextInfo{Type: ct, Data: data, EnteredAt: m.now()})
	logger.Debug("Context pushed", "context", ct.String(), "depth", len(m.stack))
	m.publish(EventContextChanged, map[string]any{
		"action":     ActionPush,
		"context":    ct,
		"stack_size": len(m.stack),
	})
	return true
}

// PopContext removes and returns the top entry. On an empty stack it returns
// false and publishes nothing.
func (m *Manager) PopContext() (ContextInfo, bool) {
	if len(m.stack) == 0 {
		return ContextInfo{}, false
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	logger.Debug("Context popped", "context", top.Type.String(), "depth", len(m.stack))
	m.publish(EventContextChanged, map[string]any{
		"action":     ActionPop,
		"context":    top.Type,
		"stack_size": len(m.stack),
	})
	return top, true
}

// CurrentContext returns the top context type, or false if the stack is empty.
func (m *Manager) CurrentContext() (ContextType, bool) {
	if len(m.stack) == 0 {
		return ContextNone, false
	}
	return m.stack[len(m.stack)-1].Type, true
}

// ContextData returns the data map of the top context. The map is live;
// use UpdateContextData to change it.
func (m *Manager) ContextData() map[string]any {
	if len(m.stack) == 0 {
		return map[string]any{}
	}
	return m.stack[len(m.stack)-1].Data
}

// UpdateContextData merges updates into the top context's data.
func (m *Manager) UpdateContextData(updates map[string]any) {
	if len(m.stack) == 0 {
		return
	}
	top := &m.stack[len(m.stack)-1]
	if top.Data == nil {
		top.Data = map[string]any{}
	}
	maps.Copy(top.Data, updates)
}

// IsInContext reports whether any stack entry, not only the top, is ct.
func (m *Manager) IsInContext(ct ContextType) bool {
	for _, c := range m.stack {
		if c.Type == ct {
			return true
		}
	}
	return false
}

// ContextStack returns a copy of the stack, bottom first.
func (m *Manager) ContextStack() []ContextInfo {
	out := make([]ContextInfo, len(m.stack))
	for i, c := range m.stack {
		out[i] = c.clone()
	}
	return out
}

// ClearContextStack drops every context.
func (m *Manager) ClearContextStack() {
	m.stack = nil
	m.publish(EventContextChanged, map[string]any{"action": ActionClear, "stack_size": 0})
}

// =============================================================================
// Player, location, flags, time
// =============================================================================

// Player returns the player character, or nil before the game starts.
func (m *Manager) Player() *character.Character {
	return m.state.Player
}

// SetPlayer installs the player character.
func (m *Manager) SetPlayer(p *character.Character) {
	m.state.Player = p
	if p != nil {
		m.state.PlayerID = p.ID
	}
	m.publish(EventPlayerChanged, map[string]any{"player": p})
}

// Location returns the current location id.
func (m *Manager) Location() string {
	return m.state.CurrentLocation
}

// SetLocation moves the party.
func (m *Manager) SetLocation(location string) {
	old := m.state.CurrentLocation
	m.state.CurrentLocation = location
	m.publish(EventLocationChanged, map[string]any{"old": old, "new": location})
}

// Flag returns the flag value or def if unset.
func (m *Manager) Flag(key string, def any) any {
	if v, ok := m.state.Flags[key]; ok {
		return v
	}
	return def
}

// SetFlag stores a flag value.
func (m *Manager) SetFlag(key string, value any) {
	m.state.Flags[key] = value
	m.publish(EventFlagChanged, map[string]any{"key": key, "value": value})
}

// AdvanceTime moves game time forward. Negative ticks are ignored.
func (m *Manager) AdvanceTime(ticks int64) {
	if ticks > 0 {
		m.state.GameTime += ticks
	}
}

// GameTime returns the tick counter.
func (m *Manager) GameTime() int64 {
	return m.state.GameTime
}

// AddPlayTime accumulates wall-clock play time.
func (m *Manager) AddPlayTime(d time.Duration) {
	if d > 0 {
		m.state.RealTimePlayed += d.Seconds()
	}
}

// =============================================================================
// Statistics and achievements
// =============================================================================

// UpdateStatistic accumulates numeric values and replaces anything else.
// When the key count exceeds the cap the oldest key is dropped.
func (m *Manager) UpdateStatistic(name string, value any) {
	stats := m.state.Statistics
	cur, exists := stats[name]
	if n, ok := toFloat(value); ok {
		base, _ := toFloat(cur)
		stats[name] = base + n
	} else {
		stats[name] = value
	}
	if !exists {
		m.state.statisticOrder = append(m.state.statisticOrder, name)
		for len(m.state.statisticOrder) > m.cfg.MaxStatistics {
			oldest := m.state.statisticOrder[0]
			m.state.statisticOrder = m.state.statisticOrder[1:]
			delete(stats, oldest)
		}
	}
	m.publish(EventStatisticChanged, map[string]any{"stat": name, "value": stats[name]})
}

// Statistic returns a recorded statistic.
func (m *Manager) Statistic(name string) (any, bool) {
	v, ok := m.state.Statistics[name]
	return v, ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// AddAchievement unlocks an achievement. It reports false if already unlocked.
func (m *Manager) AddAchievement(id string) bool {
	if _, ok := m.state.Achievements[id]; ok {
		return false
	}
	m.state.Achievements[id] = struct{}{}
	m.publish(EventAchievementUnlocked, map[string]any{"achievement": id})
	return true
}

// HasAchievement reports whether the achievement is unlocked.
func (m *Manager) HasAchievement(id string) bool {
	_, ok := m.state.Achievements[id]
	return ok
}

// Achievements returns unlocked ids in sorted order.
func (m *Manager) Achievements() []string {
	return m.state.AchievementList()
}

// =============================================================================
// Combat
// =============================================================================

// StartCombat enters COMBAT carrying the combat id.
func (m *Manager) StartCombat(combatID string) bool {
	if !m.PushContext(ContextCombat, map[string]any{"combat_id": combatID}) {
		return false
	}
	m.publish(EventCombatStarted, map[string]any{"combat_id": combatID})
	return true
}

// EndCombat closes the innermost fight. The COMBAT entry and every context
// pushed above it are popped, and the fight is appended to the history.
// It reports false, changing nothing, when no fight is active.
func (m *Manager) EndCombat(result map[string]any) bool {
	idx := m.combatIndex()
	if idx < 0 {
		return false
	}
	combatID, _ := m.stack[idx].Data["combat_id"].(string)
	for len(m.stack) > idx {
		m.PopContext()
	}

	m.state.CombatHistory = append(m.state.CombatHistory, CombatRecord{
		CombatID:  combatID,
		Result:    result,
		Timestamp: m.now(),
	})
	if n := len(m.state.CombatHistory); n > MaxCombatHistory {
		m.state.CombatHistory = append([]CombatRecord(nil), m.state.CombatHistory[n-MaxCombatHistory:]...)
	}

	data := map[string]any{"combat_id": combatID}
	maps.Copy(data, result)
	m.publish(EventCombatEnded, data)
	return true
}

// combatIndex returns the stack index of the innermost COMBAT entry that
// carries a combat id, or -1.
func (m *Manager) combatIndex() int {
	for i := len(m.stack) - 1; i >= 0; i-- {
		c := m.stack[i]
		if c.Type != ContextCombat {
			continue
		}
		if id, ok := c.Data["combat_id"].(string); ok && id != "" {
			return i
		}
	}
	return -1
}

// IsInCombat reports whether a fight is active.
func (m *Manager) IsInCombat() bool {
	return m.combatIndex() >= 0
}

// CurrentCombat returns the active combat id, or "".
func (m *Manager) CurrentCombat() string {
	idx := m.combatIndex()
	if idx < 0 {
		return ""
	}
	return m.stack[idx].Data["combat_id"].(string)
}

// CombatHistory returns a copy of finished fights, oldest first.
func (m *Manager) CombatHistory() []CombatRecord {
	return append([]CombatRecord(nil), m.state.CombatHistory...)
}

// =============================================================================
// NPCs
// =============================================================================

// AddNPC registers an NPC by its id.
func (m *Manager) AddNPC(npc *character.Character) {
	m.state.NPCs[npc.ID] = npc
	m.publish(EventNPCAdded, map[string]any{"npc": npc})
}

// RemoveNPC drops an NPC. The relationship score is kept.
func (m *Manager) RemoveNPC(id string) bool {
	npc, ok := m.state.NPCs[id]
	if !ok {
		return false
	}
	delete(m.state.NPCs, id)
	m.publish(EventNPCRemoved, map[string]any{"npc": npc})
	return true
}

// NPC looks up an NPC.
func (m *Manager) NPC(id string) (*character.Character, bool) {
	npc, ok := m.state.NPCs[id]
	return npc, ok
}

// UpdateNPCRelationship applies a signed delta clamped to the configured
// range and returns the new score.
func (m *Manager) UpdateNPCRelationship(id string, delta int) int {
	old := m.state.NPCRelationships[id]
	value := min(max(old+delta, m.cfg.RelationshipMin), m.cfg.RelationshipMax)
	m.state.NPCRelationships[id] = value
	m.publish(EventRelationshipChanged, map[string]any{
		"npc_id":    id,
		"old_value": old,
		"new_value": value,
	})
	return value
}

// Relationship returns the score for an NPC, zero if none was recorded.
func (m *Manager) Relationship(id string) int {
	return m.state.NPCRelationships[id]
}

// =============================================================================
// Quests
// =============================================================================

// AddQuest grants a quest. An empty status becomes active.
func (m *Manager) AddQuest(id string, q Quest) {
	if q.Status == "" {
		q.Status = QuestActive
	}
	m.state.Quests[id] = &q
	m.publish(EventQuestAdded, map[string]any{"quest_id": id, "quest": q})
}

// UpdateQuest merges updates into the quest data. Objective progress is
// updated from any int-valued "objectives" entry.
func (m *Manager) UpdateQuest(id string, updates map[string]any) bool {
	q, ok := m.state.Quests[id]
	if !ok {
		return false
	}
	for k, v := range updates {
		if k == "objectives" {
			if objs, ok := v.(map[string]int); ok {
				if q.Objectives == nil {
					q.Objectives = map[string]int{}
				}
				maps.Copy(q.Objectives, objs)
				continue
			}
		}
		if q.Data == nil {
			q.Data = map[string]any{}
		}
		q.Data[k] = v
	}
	m.publish(EventQuestUpdated, map[string]any{"quest_id": id, "updates": updates})
	return true
}

// CompleteQuest marks a quest completed.
func (m *Manager) CompleteQuest(id string) bool {
	q, ok := m.state.Quests[id]
	if !ok {
		return false
	}
	now := m.now()
	q.Status = QuestCompleted
	q.CompletedAt = &now
	m.publish(EventQuestCompleted, map[string]any{"quest_id": id})
	return true
}

// Quest returns a copy of a quest record.
func (m *Manager) Quest(id string) (Quest, bool) {
	q, ok := m.state.Quests[id]
	if !ok {
		return Quest{}, false
	}
	return *q, true
}

// =============================================================================
// Queries
// =============================================================================

// GameInfo is a summary of the session.
type GameInfo struct {
	PlayerName       string  `json:"player_name,omitempty"`
	Location         string  `json:"location"`
	GameTime         int64   `json:"game_time"`
	RealTimePlayed   float64 `json:"real_time_played"`
	CurrentContext   string  `json:"current_context,omitempty"`
	InCombat         bool    `json:"in_combat"`
	QuestCount       int     `json:"quest_count"`
	AchievementCount int     `json:"achievement_count"`
	GameMode         string  `json:"game_mode"`
	Difficulty       string  `json:"difficulty"`
}

// GameInfo summarizes the session.
func (m *Manager) GameInfo() GameInfo {
	info := GameInfo{
		Location:         m.state.CurrentLocation,
		GameTime:         m.state.GameTime,
		RealTimePlayed:   m.state.RealTimePlayed,
		InCombat:         m.IsInCombat(),
		QuestCount:       len(m.state.Quests),
		AchievementCount: len(m.state.Achievements),
		GameMode:         m.state.GameMode,
		Difficulty:       m.state.Difficulty,
	}
	if p := m.state.Player; p != nil {
		info.PlayerName = p.Name
	}
	if ct, ok := m.CurrentContext(); ok {
		info.CurrentContext = ct.String()
	}
	return info
}

// ValidateState reports consistency problems. An empty result means the
// state is sound.
func (m *Manager) ValidateState() []string {
	var problems []string
	if m.state.Player == nil {
		problems = append(problems, "玩家角色未设置")
	}
	if m.state.CurrentLocation == "" {
		problems = append(problems, "当前位置未设置")
	}
	for _, c := range m.stack {
		if c.Type != ContextCombat {
			continue
		}
		if id, _ := c.Data["combat_id"].(string); id == "" {
			problems = append(problems, "战斗上下文缺少战斗编号")
		}
	}
	for _, id := range slices.Sorted(maps.Keys(m.state.NPCRelationships)) {
		if _, ok := m.state.NPCs[id]; !ok {
			problems = append(problems, fmt.Sprintf("关系中引用了不存在的NPC: %s", id))
		}
	}
	return problems
}
