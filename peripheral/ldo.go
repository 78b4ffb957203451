package peripheral

import (
	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// LDO/load switch modes.
var LdoModes = []shell.EnumValue{{Name: "loadSwitch", Wire: "0"}, {Name: "LDO", Wire: "1"}}

var (
	ldoEnabled   = field[bool]{stem: "npmx ldsw status", indexed: true, codec: shell.Boolean}
	ldoVoltage   = field[float64]{stem: "npmx ldsw ldo_voltage", indexed: true, codec: shell.Millivolts(1)}
	ldoMode      = field[string]{stem: "npmx ldsw mode", indexed: true, codec: shell.Enum(LdoModes...)}
	ldoSoftStart = field[bool]{stem: "npmx ldsw soft_start enable", indexed: true, codec: shell.Boolean}
)

var ldoModePrompt = confirm.Prompt{
	Message: "Before enabling LDO mode, make sure the output capacitor and " +
		"input voltage match the LDO requirements. Continue?",
	ConfirmLabel:    "Yes",
	CancelLabel:     "No",
	OptionalLabel:   "Yes, do not ask again",
	DoNotAskAgainID: "ldoModeChange",
}

// Ldo controls the LDO/load switch instances.
type Ldo struct {
	*Base
	layout Layout
}

// NewLdo creates the LDO module for layout.Ldos instances.
func NewLdo(d Deps, layout Layout) *Ldo {
	l := &Ldo{Base: newBase("ldo", d), layout: layout}

	emit := func(i int, p state.LdoPatch) { l.bus.EmitPartial(eventbus.LdoUpdate, p, i) }
	bind(l.Base, ldoEnabled, func(i int, v bool) { emit(i, state.LdoPatch{Enabled: &v}) })
	bind(l.Base, ldoVoltage, func(i int, v float64) { emit(i, state.LdoPatch{Voltage: &v}) })
	bind(l.Base, ldoMode, func(i int, v string) { emit(i, state.LdoPatch{Mode: &v}) })
	bind(l.Base, ldoSoftStart, func(i int, v bool) { emit(i, state.LdoPatch{SoftStart: &v}) })
	return l
}

// Count returns the number of LDOs.
func (l *Ldo) Count() int { return l.layout.Ldos }

// GetAll queries every field of every LDO.
func (l *Ldo) GetAll() {
	for i := 0; i < l.layout.Ldos; i++ {
		l.GetEnabled(i)
		l.GetVoltage(i)
		l.GetMode(i)
		l.GetSoftStart(i)
	}
}

func (l *Ldo) GetEnabled(i int)   { get(l.Base, ldoEnabled, i) }
func (l *Ldo) GetVoltage(i int)   { get(l.Base, ldoVoltage, i) }
func (l *Ldo) GetMode(i int)      { get(l.Base, ldoMode, i) }
func (l *Ldo) GetSoftStart(i int) { get(l.Base, ldoSoftStart, i) }

// SetEnabled turns an LDO on or off.
func (l *Ldo) SetEnabled(i int, on bool) *shell.Future {
	if err := checkIndex("ldo", i, l.layout.Ldos); err != nil {
		return shell.Rejected(err)
	}
	return set(l.Base, ldoEnabled, i, on)
}

// SetVoltage sets the LDO output voltage in volts.
func (l *Ldo) SetVoltage(i int, v float64) *shell.Future {
	if err := checkIndex("ldo", i, l.layout.Ldos); err != nil {
		return shell.Rejected(err)
	}
	if err := checkRange("voltage", v, l.layout.LdoVoltage); err != nil {
		return shell.Rejected(err)
	}
	return set(l.Base, ldoVoltage, i, v)
}

// SetMode selects "loadSwitch" or "LDO". Entering LDO mode asks first.
func (l *Ldo) SetMode(i int, mode string) *shell.Future {
	if err := checkIndex("ldo", i, l.layout.Ldos); err != nil {
		return shell.Rejected(err)
	}
	op := func() *shell.Future { return set(l.Base, ldoMode, i, mode) }
	if mode == "LDO" {
		return l.gate.Wrap(ldoModePrompt, op)
	}
	return op()
}

// SetSoftStart enables the soft start current limit.
func (l *Ldo) SetSoftStart(i int, on bool) *shell.Future {
	if err := checkIndex("ldo", i, l.layout.Ldos); err != nil {
		return shell.Rejected(err)
	}
	return set(l.Base, ldoSoftStart, i, on)
}
