package peripheral

import (
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// Timer modes.
var TimerModes = []shell.EnumValue{
	{Name: "bootMonitor", Wire: "0"},
	{Name: "wakeUp", Wire: "1"},
	{Name: "generalPurpose", Wire: "2"},
	{Name: "watchdogWarning", Wire: "3"},
	{Name: "watchdogReset", Wire: "4"},
}

// Timer prescalers.
var TimerPrescalers = []shell.EnumValue{{Name: "slow", Wire: "0"}, {Name: "fast", Wire: "1"}}

// TimerPeriod is the valid compare period in ms.
var TimerPeriod = Range{Min: 0, Max: 0xFFFFFF}

var (
	timerMode      = field[string]{stem: "npmx timer config mode", codec: shell.Enum(TimerModes...)}
	timerPrescaler = field[string]{stem: "npmx timer config prescaler", codec: shell.Enum(TimerPrescalers...)}
	timerPeriod    = field[int]{stem: "npmx timer config compare", codec: shell.Integer}
)

// Timer controls the general purpose timer.
type Timer struct {
	*Base
}

// NewTimer creates the timer module.
func NewTimer(d Deps) *Timer {
	t := &Timer{Base: newBase("timer", d)}
	emit := func(p state.TimerPatch) { t.bus.Emit(eventbus.TimerUpdate, p) }
	bind(t.Base, timerMode, func(_ int, v string) { emit(state.TimerPatch{Mode: &v}) })
	bind(t.Base, timerPrescaler, func(_ int, v string) { emit(state.TimerPatch{Prescaler: &v}) })
	bind(t.Base, timerPeriod, func(_ int, v int) { emit(state.TimerPatch{Period: &v}) })
	return t
}

// GetAll queries every timer field.
func (t *Timer) GetAll() {
	t.GetMode()
	t.GetPrescaler()
	t.GetPeriod()
}

func (t *Timer) GetMode()      { get(t.Base, timerMode, 0) }
func (t *Timer) GetPrescaler() { get(t.Base, timerPrescaler, 0) }
func (t *Timer) GetPeriod()    { get(t.Base, timerPeriod, 0) }

// SetMode selects the timer mode.
func (t *Timer) SetMode(mode string) *shell.Future { return set(t.Base, timerMode, 0, mode) }

// SetPrescaler selects the timer clock.
func (t *Timer) SetPrescaler(name string) *shell.Future {
	return set(t.Base, timerPrescaler, 0, name)
}

// SetPeriod sets the compare period in ms.
func (t *Timer) SetPeriod(ms int) *shell.Future {
	if err := checkRange("period", float64(ms), TimerPeriod); err != nil {
		return shell.Rejected(err)
	}
	return set(t.Base, timerPeriod, 0, ms)
}
