package peripheral

import (
	"slices"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// ShipTimeToActive lists the valid exit debounce times in ms.
var ShipTimeToActive = []int{16, 32, 64, 96, 304, 608, 1008, 3008}

var shipPrompt = confirm.Prompt{
	Message: "In ship mode the PMIC stops responding until the SHPHLD button " +
		"is pressed. Enter ship mode?",
	ConfirmLabel:    "Enter ship mode",
	CancelLabel:     "Cancel",
	OptionalLabel:   "Enter and do not ask again",
	DoNotAskAgainID: "shipModeConfirm",
}

var hibernatePrompt = confirm.Prompt{
	Message: "In hibernate mode the PMIC stops responding until the timer " +
		"expires or the SHPHLD button is pressed. Enter hibernate mode?",
	ConfirmLabel:    "Enter hibernate mode",
	CancelLabel:     "Cancel",
	OptionalLabel:   "Enter and do not ask again",
	DoNotAskAgainID: "hibernateModeConfirm",
}

// Ship controls the ship and hibernate low power modes.
type Ship struct {
	*Base
	timer *Timer

	timeToActive   field[int]
	invPolarity    field[bool]
	longPressReset field[bool]
	shipCmd        string
	hibernateCmd   string
}

// NewShip creates the low power module. timer is used to arm the wake-up
// before hibernating.
func NewShip(d Deps, layout Layout, timer *Timer) *Ship {
	prefix := layout.LowPowerPrefix
	s := &Ship{
		Base:           newBase("ship", d),
		timer:          timer,
		timeToActive:   field[int]{stem: prefix + " config time", codec: shell.Integer},
		invPolarity:    field[bool]{stem: prefix + " config inv_polarity", codec: shell.Boolean},
		longPressReset: field[bool]{stem: prefix + " reset long_press", codec: shell.Boolean},
		shipCmd:        prefix + " mode ship",
		hibernateCmd:   prefix + " mode hibernate",
	}

	emit := func(p state.ShipPatch) { s.bus.Emit(eventbus.ShipUpdate, p) }
	bind(s.Base, s.timeToActive, func(_ int, v int) { emit(state.ShipPatch{TimeToActive: &v}) })
	bind(s.Base, s.invPolarity, func(_ int, v bool) { emit(state.ShipPatch{InvPolarity: &v}) })
	bind(s.Base, s.longPressReset, func(_ int, v bool) { emit(state.ShipPatch{LongPressReset: &v}) })

	entered := func(shell.Match) {
		s.bus.Emit(eventbus.RebootUpdate, state.Reboot{Phase: state.RebootRequested})
	}
	s.onCommand(shell.ActionPattern(s.shipCmd), entered)
	s.onCommand(shell.ActionPattern(s.hibernateCmd), entered)
	return s
}

// GetAll queries every ship field.
func (s *Ship) GetAll() {
	s.GetTimeToActive()
	s.GetInvPolarity()
	s.GetLongPressReset()
}

func (s *Ship) GetTimeToActive()   { get(s.Base, s.timeToActive, 0) }
func (s *Ship) GetInvPolarity()    { get(s.Base, s.invPolarity, 0) }
func (s *Ship) GetLongPressReset() { get(s.Base, s.longPressReset, 0) }

// SetTimeToActive sets the exit debounce time in ms.
func (s *Ship) SetTimeToActive(ms int) *shell.Future {
	if !slices.Contains(ShipTimeToActive, ms) {
		return shell.Rejected(&shell.RangeError{Field: "timeToActive", Value: float64(ms), Min: 16, Max: 3008})
	}
	return set(s.Base, s.timeToActive, 0, ms)
}

// SetInvPolarity inverts the SHPHLD button polarity.
func (s *Ship) SetInvPolarity(on bool) *shell.Future { return set(s.Base, s.invPolarity, 0, on) }

// SetLongPressReset enables reset on a long SHPHLD press.
func (s *Ship) SetLongPressReset(on bool) *shell.Future {
	return set(s.Base, s.longPressReset, 0, on)
}

// EnterShipMode puts the PMIC into ship mode after confirmation.
func (s *Ship) EnterShipMode() *shell.Future {
	return s.gate.Wrap(shipPrompt, func() *shell.Future {
		return s.action(s.shipCmd, "")
	})
}

// EnterHibernate arms the timer as a wake-up source for wakeMs and then
// enters hibernate mode, after confirmation.
func (s *Ship) EnterHibernate(wakeMs int) *shell.Future {
	if err := checkRange("period", float64(wakeMs), TimerPeriod); err != nil {
		return shell.Rejected(err)
	}
	return s.gate.Wrap(hibernatePrompt, func() *shell.Future {
		return Sequence(s.io, []string{timerMode.getCmd(0), timerPeriod.getCmd(0)},
			func() *shell.Future { return s.timer.SetMode("wakeUp") },
			func() *shell.Future { return s.timer.SetPeriod(wakeMs) },
			func() *shell.Future { return s.action(s.hibernateCmd, "") },
		)
	})
}
