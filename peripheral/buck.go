package peripheral

import (
	"fmt"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// Buck output voltage sources.
var BuckModes = []shell.EnumValue{{Name: "vSet", Wire: "0"}, {Name: "software", Wire: "1"}}

var (
	buckVOutNormal    = field[float64]{stem: "npmx buck voltage normal", indexed: true, codec: shell.Millivolts(1)}
	buckVOutRetention = field[float64]{stem: "npmx buck voltage retention", indexed: true, codec: shell.Millivolts(1)}
	buckMode          = field[string]{stem: "npmx buck vout_select", indexed: true, codec: shell.Enum(BuckModes...)}
	buckEnabled       = field[bool]{stem: "npmx buck status", indexed: true, codec: shell.Boolean}
	buckDischarge     = field[bool]{stem: "npmx buck active_discharge", indexed: true, codec: shell.Boolean}
)

// Buck controls the buck regulators.
type Buck struct {
	*Base
	layout Layout
}

// NewBuck creates the buck module for layout.Bucks instances.
func NewBuck(d Deps, layout Layout) *Buck {
	b := &Buck{Base: newBase("buck", d), layout: layout}

	emit := func(i int, p state.BuckPatch) { b.bus.EmitPartial(eventbus.BuckUpdate, p, i) }
	bind(b.Base, buckVOutNormal, func(i int, v float64) { emit(i, state.BuckPatch{VOutNormal: &v}) })
	bind(b.Base, buckVOutRetention, func(i int, v float64) { emit(i, state.BuckPatch{VOutRetention: &v}) })
	bind(b.Base, buckMode, func(i int, v string) { emit(i, state.BuckPatch{Mode: &v}) })
	bind(b.Base, buckEnabled, func(i int, v bool) { emit(i, state.BuckPatch{Enabled: &v}) })
	bind(b.Base, buckDischarge, func(i int, v bool) { emit(i, state.BuckPatch{ActiveDischarge: &v}) })
	return b
}

// Count returns the number of bucks.
func (b *Buck) Count() int { return b.layout.Bucks }

// GetAll queries every field of every buck.
func (b *Buck) GetAll() {
	for i := 0; i < b.layout.Bucks; i++ {
		b.GetVOutNormal(i)
		b.GetVOutRetention(i)
		b.GetMode(i)
		b.GetEnabled(i)
		b.GetActiveDischarge(i)
	}
}

func (b *Buck) GetVOutNormal(i int)      { get(b.Base, buckVOutNormal, i) }
func (b *Buck) GetVOutRetention(i int)   { get(b.Base, buckVOutRetention, i) }
func (b *Buck) GetMode(i int)            { get(b.Base, buckMode, i) }
func (b *Buck) GetEnabled(i int)         { get(b.Base, buckEnabled, i) }
func (b *Buck) GetActiveDischarge(i int) { get(b.Base, buckDischarge, i) }

func (b *Buck) interfacePrompt(i int, id string) confirm.Prompt {
	return confirm.Prompt{
		Message: fmt.Sprintf("Buck %d powers the evaluation kit interface. "+
			"The kit may lose communication with the PMIC. Continue?", i+1),
		ConfirmLabel:    "Yes",
		CancelLabel:     "No",
		OptionalLabel:   "Yes, do not ask again",
		DoNotAskAgainID: id,
	}
}

// SetVOutNormal sets the normal mode output voltage and switches the buck
// to software control, in that order.
func (b *Buck) SetVOutNormal(i int, v float64) *shell.Future {
	if err := checkIndex("buck", i, b.layout.Bucks); err != nil {
		return shell.Rejected(err)
	}
	if err := checkRange("vOutNormal", v, b.layout.BuckVoltage); err != nil {
		return shell.Rejected(err)
	}
	op := func() *shell.Future {
		return Sequence(b.io, []string{buckVOutNormal.getCmd(i), buckMode.getCmd(i)},
			func() *shell.Future { return set(b.Base, buckVOutNormal, i, v) },
			func() *shell.Future { return set(b.Base, buckMode, i, "software") },
		)
	}
	if i == b.layout.InterfaceBuck && v < b.layout.InterfaceMin {
		return b.gate.Wrap(b.interfacePrompt(i, "buck2VOutChange"), op)
	}
	return op()
}

// SetVOutRetention sets the retention mode output voltage.
func (b *Buck) SetVOutRetention(i int, v float64) *shell.Future {
	if err := checkIndex("buck", i, b.layout.Bucks); err != nil {
		return shell.Rejected(err)
	}
	if err := checkRange("vOutRetention", v, b.layout.BuckVoltage); err != nil {
		return shell.Rejected(err)
	}
	return set(b.Base, buckVOutRetention, i, v)
}

// SetMode selects the voltage source, "vSet" or "software". Switching to
// vSet changes the output voltage, so the voltage is refreshed too.
func (b *Buck) SetMode(i int, mode string) *shell.Future {
	if err := checkIndex("buck", i, b.layout.Bucks); err != nil {
		return shell.Rejected(err)
	}
	op := func() *shell.Future {
		fut := set(b.Base, buckMode, i, mode, buckVOutNormal.getCmd(i))
		fut.OnSettle(func(err error) {
			if err == nil {
				b.GetVOutNormal(i)
			}
		})
		return fut
	}
	if i == b.layout.InterfaceBuck && mode == "vSet" {
		return b.gate.Wrap(b.interfacePrompt(i, "buck2VOutChange"), op)
	}
	return op()
}

// SetEnabled turns a buck on or off.
func (b *Buck) SetEnabled(i int, on bool) *shell.Future {
	if err := checkIndex("buck", i, b.layout.Bucks); err != nil {
		return shell.Rejected(err)
	}
	op := func() *shell.Future { return set(b.Base, buckEnabled, i, on) }
	if i == b.layout.InterfaceBuck && !on {
		return b.gate.Wrap(b.interfacePrompt(i, "buck2Disable"), op)
	}
	return op()
}

// SetActiveDischarge enables the output discharge resistor.
func (b *Buck) SetActiveDischarge(i int, on bool) *shell.Future {
	if err := checkIndex("buck", i, b.layout.Bucks); err != nil {
		return shell.Rejected(err)
	}
	return set(b.Base, buckDischarge, i, on)
}
