package command

// CommandType is the closed set of recognized verbs.
type CommandType string

const (
	Attack       CommandType = "attack"
	UseSkill     CommandType = "use_skill"
	Defend       CommandType = "defend"
	Flee         CommandType = "flee"
	Move         CommandType = "move"
	Explore      CommandType = "explore"
	Talk         CommandType = "talk"
	Trade        CommandType = "trade"
	PickUp       CommandType = "pick_up"
	Cultivate    CommandType = "cultivate"
	LearnSkill   CommandType = "learn_skill"
	Breakthrough CommandType = "breakthrough"
	UseItem      CommandType = "use_item"
	Equip        CommandType = "equip"
	Unequip      CommandType = "unequip"
	Status       CommandType = "status"
	Inventory    CommandType = "inventory"
	Skills       CommandType = "skills"
	Map          CommandType = "map"
	Save         CommandType = "save"
	Load         CommandType = "load"
	Quit         CommandType = "quit"
	Help         CommandType = "help"
	Unknown      CommandType = "unknown"
)

var allCommandTypes = []CommandType{
	Attack, UseSkill, Defend, Flee,
	Move, Explore,
	Talk, Trade, PickUp,
	Cultivate, LearnSkill, Breakthrough,
	UseItem, Equip, Unequip,
	Status, Inventory, Skills, Map,
	Save, Load, Quit, Help,
	Unknown,
}

// AllCommandTypes returns every command type, including Unknown.
func AllCommandTypes() []CommandType {
	return append([]CommandType(nil), allCommandTypes...)
}

// ParseCommandType maps a type name to its CommandType.
func ParseCommandType(name string) (CommandType, bool) {
	for _, ct := range allCommandTypes {
		if string(ct) == name {
			return ct, true
		}
	}
	return Unknown, false
}

// ParsedCommand is the parser's output. It is not modified after parsing.
type ParsedCommand struct {
	Type       CommandType
	Target     string
	Parameters map[string]string
	RawText    string
	Confidence float64
}

// Param returns a named parameter or "".
func (p ParsedCommand) Param(name string) string {
	return p.Parameters[name]
}
