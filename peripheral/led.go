package peripheral

import (
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// LED driver functions.
var LedModes = []shell.EnumValue{
	{Name: "chargerError", Wire: "0"},
	{Name: "charging", Wire: "1"},
	{Name: "host", Wire: "2"},
	{Name: "notUsed", Wire: "3"},
}

var ledMode = field[string]{stem: "npmx leds mode", indexed: true, codec: shell.Enum(LedModes...)}

// Led controls the LED drivers.
type Led struct {
	*Base
	count int
}

// NewLed creates the LED module.
func NewLed(d Deps, count int) *Led {
	l := &Led{Base: newBase("led", d), count: count}
	bind(l.Base, ledMode, func(i int, v string) {
		l.bus.EmitPartial(eventbus.LedUpdate, state.LedPatch{Mode: &v}, i)
	})
	return l
}

// GetAll queries every LED.
func (l *Led) GetAll() {
	for i := 0; i < l.count; i++ {
		l.GetMode(i)
	}
}

func (l *Led) GetMode(i int) { get(l.Base, ledMode, i) }

// SetMode selects what drives LED i.
func (l *Led) SetMode(i int, mode string) *shell.Future {
	if err := checkIndex("led", i, l.count); err != nil {
		return shell.Rejected(err)
	}
	return set(l.Base, ledMode, i, mode)
}
