package state

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/character"
)

// Quest status values.
const (
	QuestActive    = "active"
	QuestCompleted = "completed"
)

// Quest is a granted quest's progress record.
type Quest struct {
	Status      string         `json:"status"`
	Objectives  map[string]int `json:"objectives,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// CombatRecord is one finished fight.
type CombatRecord struct {
	CombatID  string         `json:"combat_id"`
	Result    map[string]any `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// GameState is the mutable root of game truth. Whether a fight is active is
// not stored here; it is derived from the context stack.
type GameState struct {
	Player           *character.Character
	PlayerID         string
	CurrentLocation  string
	GameTime         int64
	RealTimePlayed   float64
	CombatHistory    []CombatRecord
	NPCs             map[string]*character.Character
	NPCRelationships map[string]int
	Flags            map[string]any
	Quests           map[string]*Quest
	Achievements     map[string]struct{}
	Statistics       map[string]any
	statisticOrder   []string
	GameMode         string
	Difficulty       string
}

// NewGameState returns an empty state at the given location.
func NewGameState(location string) *GameState {
	return &GameState{
		CurrentLocation:  location,
		CombatHistory:    []CombatRecord{},
		NPCs:             map[string]*character.Character{},
		NPCRelationships: map[string]int{},
		Flags:            map[string]any{},
		Quests:           map[string]*Quest{},
		Achievements:     map[string]struct{}{},
		Statistics:       map[string]any{},
		GameMode:         "player",
		Difficulty:       "normal",
	}
}

// wireState is the JSON form of GameState.
type wireState struct {
	Player           *character.Character            `json:"player"`
	PlayerID         string                          `json:"player_id"`
	CurrentLocation  string                          `json:"current_location"`
	GameTime         int64                           `json:"game_time"`
	RealTimePlayed   float64                         `json:"real_time_played"`
	CurrentCombat    *string                         `json:"current_combat"`
	CombatHistory    []CombatRecord                  `json:"combat_history"`
	NPCs             map[string]*character.Character `json:"npcs"`
	NPCRelationships map[string]int                  `json:"npc_relationships"`
	Flags            map[string]any                  `json:"flags"`
	Quests           map[string]*Quest               `json:"quests"`
	Achievements     []string                        `json:"achievements"`
	Statistics       map[string]any                  `json:"statistics"`
	StatisticOrder   []string                        `json:"statistic_order,omitempty"`
	GameMode         string                          `json:"game_mode"`
	Difficulty       string                          `json:"difficulty"`
}

func (s *GameState) toWire(currentCombat string) wireState {
	achievements := make([]string, 0, len(s.Achievements))
	for id := range s.Achievements {
		achievements = append(achievements, id)
	}
	sort.Strings(achievements)

	w := wireState{
		Player:           s.Player,
		PlayerID:         s.PlayerID,
		CurrentLocation:  s.CurrentLocation,
		GameTime:         s.GameTime,
		RealTimePlayed:   s.RealTimePlayed,
		CombatHistory:    s.CombatHistory,
		NPCs:             s.NPCs,
		NPCRelationships: s.NPCRelationships,
		Flags:            s.Flags,
		Quests:           s.Quests,
		Achievements:     achievements,
		Statistics:       s.Statistics,
		StatisticOrder:   s.statisticOrder,
		GameMode:         s.GameMode,
		Difficulty:       s.Difficulty,
	}
	if currentCombat != "" {
		w.CurrentCombat = &currentCombat
	}
	return w
}

func fromWire(w wireState, defaultLocation string) *GameState {
	s := NewGameState(defaultLocation)
	s.Player = w.Player
	s.PlayerID = w.PlayerID
	if w.CurrentLocation != "" {
		s.CurrentLocation = w.CurrentLocation
	}
	s.GameTime = w.GameTime
	s.RealTimePlayed = w.RealTimePlayed
	if w.CombatHistory != nil {
		s.CombatHistory = w.CombatHistory
	}
	if w.NPCs != nil {
		s.NPCs = w.NPCs
	}
	if w.NPCRelationships != nil {
		s.NPCRelationships = w.NPCRelationships
	}
	if w.Flags != nil {
		s.Flags = w.Flags
	}
	if w.Quests != nil {
		s.Quests = w.Quests
	}
	for _, id := range w.Achievements {
		s.Achievements[id] = struct{}{}
	}
	if w.Statistics != nil {
		s.Statistics = w.Statistics
	}
	s.statisticOrder = reconcileOrder(w.StatisticOrder, s.Statistics)
	if w.GameMode != "" {
		s.GameMode = w.GameMode
	}
	if w.Difficulty != "" {
		s.Difficulty = w.Difficulty
	}
	return s
}

// reconcileOrder keeps the saved key order and appends keys it misses.
func reconcileOrder(order []string, stats map[string]any) []string {
	out := make([]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, k := range order {
		if _, ok := stats[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range stats {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// AchievementList returns unlocked achievement ids in sorted order.
func (s *GameState) AchievementList() []string {
	return s.toWire("").Achievements
}

// clone deep copies the state by round-tripping it through JSON.
func (s *GameState) clone() (*GameState, error) {
	data, err := json.Marshal(s.toWire(""))
	if err != nil {
		return nil, err
	}
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return fromWire(w, s.CurrentLocation), nil
}
