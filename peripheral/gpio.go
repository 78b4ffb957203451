package peripheral

import (
	"slices"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// GPIO pin functions.
var GpioModes = []shell.EnumValue{
	{Name: "input", Wire: "0"},
	{Name: "inputRisingEdge", Wire: "1"},
	{Name: "inputFallingEdge", Wire: "2"},
	{Name: "outputInterrupt", Wire: "3"},
	{Name: "outputReset", Wire: "4"},
	{Name: "outputPowerLossWarning", Wire: "5"},
	{Name: "outputLogic1", Wire: "6"},
	{Name: "outputLogic0", Wire: "7"},
}

// GPIO pull resistor choices.
var GpioPulls = []shell.EnumValue{
	{Name: "pullDown", Wire: "0"},
	{Name: "pullUp", Wire: "1"},
	{Name: "pullDisable", Wire: "2"},
}

// GpioDrives are the valid drive strengths in mA.
var GpioDrives = []int{1, 6}

var (
	gpioMode      = field[string]{stem: "npmx gpio config mode", indexed: true, codec: shell.Enum(GpioModes...)}
	gpioPull      = field[string]{stem: "npmx gpio config pull", indexed: true, codec: shell.Enum(GpioPulls...)}
	gpioDrive     = field[int]{stem: "npmx gpio config drive", indexed: true, codec: shell.Integer}
	gpioOpenDrain = field[bool]{stem: "npmx gpio config open_drain", indexed: true, codec: shell.Boolean}
	gpioDebounce  = field[bool]{stem: "npmx gpio config debounce", indexed: true, codec: shell.Boolean}
)

// Gpio controls the GPIO pins.
type Gpio struct {
	*Base
	count int
}

// NewGpio creates the GPIO module for count pins.
func NewGpio(d Deps, count int) *Gpio {
	g := &Gpio{Base: newBase("gpio", d), count: count}

	emit := func(i int, p state.GpioPatch) { g.bus.EmitPartial(eventbus.GpioUpdate, p, i) }
	bind(g.Base, gpioMode, func(i int, v string) { emit(i, state.GpioPatch{Mode: &v}) })
	bind(g.Base, gpioPull, func(i int, v string) { emit(i, state.GpioPatch{Pull: &v}) })
	bind(g.Base, gpioDrive, func(i int, v int) { emit(i, state.GpioPatch{Drive: &v}) })
	bind(g.Base, gpioOpenDrain, func(i int, v bool) { emit(i, state.GpioPatch{OpenDrain: &v}) })
	bind(g.Base, gpioDebounce, func(i int, v bool) { emit(i, state.GpioPatch{Debounce: &v}) })
	return g
}

// Count returns the number of pins.
func (g *Gpio) Count() int { return g.count }

// GetAll queries every field of every pin.
func (g *Gpio) GetAll() {
	for i := 0; i < g.count; i++ {
		g.GetMode(i)
		g.GetPull(i)
		g.GetDrive(i)
		g.GetOpenDrain(i)
		g.GetDebounce(i)
	}
}

func (g *Gpio) GetMode(i int)      { get(g.Base, gpioMode, i) }
func (g *Gpio) GetPull(i int)      { get(g.Base, gpioPull, i) }
func (g *Gpio) GetDrive(i int)     { get(g.Base, gpioDrive, i) }
func (g *Gpio) GetOpenDrain(i int) { get(g.Base, gpioOpenDrain, i) }
func (g *Gpio) GetDebounce(i int)  { get(g.Base, gpioDebounce, i) }

// SetMode selects the pin function.
func (g *Gpio) SetMode(i int, mode string) *shell.Future {
	if err := checkIndex("gpio", i, g.count); err != nil {
		return shell.Rejected(err)
	}
	return set(g.Base, gpioMode, i, mode)
}

// SetPull selects the pull resistor.
func (g *Gpio) SetPull(i int, pull string) *shell.Future {
	if err := checkIndex("gpio", i, g.count); err != nil {
		return shell.Rejected(err)
	}
	return set(g.Base, gpioPull, i, pull)
}

// SetDrive sets the drive strength in mA.
func (g *Gpio) SetDrive(i int, mA int) *shell.Future {
	if err := checkIndex("gpio", i, g.count); err != nil {
		return shell.Rejected(err)
	}
	if !slices.Contains(GpioDrives, mA) {
		return shell.Rejected(&shell.RangeError{Field: "drive", Value: float64(mA), Min: 1, Max: 6})
	}
	return set(g.Base, gpioDrive, i, mA)
}

// SetOpenDrain enables open drain output.
func (g *Gpio) SetOpenDrain(i int, on bool) *shell.Future {
	if err := checkIndex("gpio", i, g.count); err != nil {
		return shell.Rejected(err)
	}
	return set(g.Base, gpioOpenDrain, i, on)
}

// SetDebounce enables input debouncing.
func (g *Gpio) SetDebounce(i int, on bool) *shell.Future {
	if err := checkIndex("gpio", i, g.count); err != nil {
		return shell.Rejected(err)
	}
	return set(g.Base, gpioDebounce, i, on)
}
