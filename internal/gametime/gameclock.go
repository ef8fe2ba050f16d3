// Package gametime maps the state manager's game ticks onto the traditional
// twelve double-hours (时辰) and a day count.
package gametime

import "fmt"

const (
	// Time constants
	TicksPerShichen = 10
	ShichenPerDay   = 12
	TicksPerDay     = TicksPerShichen * ShichenPerDay

	// Time periods, as 时辰 indexes
	DawnShichen = 3 // 卯时
	DuskShichen = 9 // 酉时
)

var shichenNames = [ShichenPerDay]string{
	"子时", "丑时", "寅时", "卯时", "辰时", "巳时",
	"午时", "未时", "申时", "酉时", "戌时", "亥时",
}

// GameClock is a point in game time. The zero value is 子时 of day one.
type GameClock struct {
	ticks int64
}

// At returns the clock for a tick count. Negative counts clamp to zero.
func At(ticks int64) GameClock {
	return GameClock{ticks: max(ticks, 0)}
}

// Ticks returns the underlying tick count.
func (gc GameClock) Ticks() int64 {
	return gc.ticks
}

// Shichen returns the current double-hour (0-11)
func (gc GameClock) Shichen() int {
	return int((gc.ticks % TicksPerDay) / TicksPerShichen)
}

// ShichenName returns the name of the current double-hour, e.g. "午时"
func (gc GameClock) ShichenName() string {
	return shichenNames[gc.Shichen()]
}

// Day returns the day number, starting at 1
func (gc GameClock) Day() int64 {
	return gc.ticks/TicksPerDay + 1
}

// IsDay returns true from 卯时 through 申时
func (gc GameClock) IsDay() bool {
	s := gc.Shichen()
	return s >= DawnShichen && s < DuskShichen
}

// IsNight returns true from 酉时 through 寅时
func (gc GameClock) IsNight() bool {
	return !gc.IsDay()
}

// TimeOfDay returns a word for the current period
func (gc GameClock) TimeOfDay() string {
	switch s := gc.Shichen(); {
	case s < DawnShichen:
		return "深夜"
	case s < 6:
		return "清晨"
	case s < DuskShichen:
		return "午后"
	default:
		return "夜晚"
	}
}

// String returns a formatted time such as "第3天 午时"
func (gc GameClock) String() string {
	return fmt.Sprintf("第%d天 %s", gc.Day(), gc.ShichenName())
}

// TicksUntilNextPeriod returns ticks until the next day/night transition
func (gc GameClock) TicksUntilNextPeriod() int64 {
	intoShichen := gc.ticks % TicksPerShichen
	s := gc.Shichen()
	var shichenUntil int

	if gc.IsDay() {
		shichenUntil = DuskShichen - s
	} else if s >= DuskShichen {
		shichenUntil = (ShichenPerDay - s) + DawnShichen
	} else {
		shichenUntil = DawnShichen - s
	}

	return int64(shichenUntil)*TicksPerShichen - intoShichen
}

// DescriptiveTime returns a natural language time description
func (gc GameClock) DescriptiveTime() string {
	switch gc.Shichen() {
	case 0:
		return "夜半子时，万籁俱寂"
	case DawnShichen:
		return "卯时日出，晨光熹微"
	case 6:
		return "午时正中，烈日当空"
	case DuskShichen:
		return "酉时日落，暮色四合"
	default:
		return fmt.Sprintf("现在是%s，%s", gc.ShichenName(), gc.TimeOfDay())
	}
}
