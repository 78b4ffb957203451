// =============================================================================
// translate.go - Command Translation (User Input → Module Calls)
// =============================================================================
//
// This file turns the REPL's ".set" command into a call on a peripheral
// module. The user names the module, an optional instance index, the field
// and the new value; the module validates the value, sends the shell
// commands and updates the confirmed state once the device agrees.
//
// Examples:
//   .set charger vterm 4.2        → Charger.SetVTerm(4.2)
//   .set buck 1 vout 1.8          → Buck.SetVOutNormal(1, 1.8)
//   .set ldo 0 enabled on         → Ldo.SetEnabled(0, true)
//   .set gpio 2 mode outputLogic1 → Gpio.SetMode(2, "outputLogic1")
//
// Instance indices start at 0, the same numbering ".state" prints. Field
// names are matched case-insensitively.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/shell"
)

var (
	// errUsage marks input the translator could not parse.
	errUsage = errors.New("usage")

	// errNoModule means the PMIC model has no such peripheral.
	errNoModule = errors.New("no such module on this PMIC")

	// errNoField means the module has no writable field by that name.
	errNoField = errors.New("no such field")
)

// setCommand is a parsed ".set" line.
type setCommand struct {
	module string
	index  int
	field  string
	value  string
}

// parseSet parses the arguments of ".set":
//
//	<module> [index] <field> <value>
func parseSet(args []string) (setCommand, error) {
	var c setCommand
	switch len(args) {
	case 3:
		c = setCommand{module: args[0], field: args[1], value: args[2]}
	case 4:
		i, err := strconv.Atoi(args[1])
		if err != nil || i < 0 {
			return c, fmt.Errorf("%w: index %q is not a number", errUsage, args[1])
		}
		c = setCommand{module: args[0], index: i, field: args[2], value: args[3]}
	default:
		return c, fmt.Errorf("%w: .set <module> [index] <field> <value>", errUsage)
	}
	c.module = strings.ToLower(c.module)
	c.field = strings.ToLower(c.field)
	return c, nil
}

// GO CONCEPT: Closures as Deferred Work
// -------------------------------------
// resolveSet does all of the parsing up front and hands back a function
// that performs the write. The REPL can then report a typo without having
// touched the device, and only calls the function once everything parsed.
//
// Compare with Python: the same idea is `functools.partial(module.set_vterm,
// 4.2)`, a callable built now and invoked later.

// resolveSet checks c against the modules of set and returns the write.
func resolveSet(set *peripheral.Set, c setCommand) (func() *shell.Future, error) {
	if set == nil {
		return nil, errNoModule
	}
	switch c.module {
	case "charger":
		if set.Charger == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		return chargerSet(set.Charger, c)
	case "buck":
		if set.Buck == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		return buckSet(set.Buck, c)
	case "boost":
		if set.Boost == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		return boostSet(set.Boost, c)
	case "ldo":
		if set.Ldo == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		return ldoSet(set.Ldo, c)
	case "gpio":
		if set.Gpio == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		return gpioSet(set.Gpio, c)
	case "led":
		if set.Led == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		if c.field != "mode" {
			return nil, fieldError(c)
		}
		return func() *shell.Future { return set.Led.SetMode(c.index, c.value) }, nil
	case "pof":
		return pofSet(set.Pof, c)
	case "ship":
		return shipSet(set.Ship, c)
	case "timer":
		return timerSet(set.Timer, c)
	case "usb":
		if set.Usb == nil {
			return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
		}
		if c.field != "limit" && c.field != "currentlimiter" {
			return nil, fieldError(c)
		}
		a, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return set.Usb.SetCurrentLimiter(a) }, nil
	case "fuelgauge":
		return fuelGaugeSet(set.FuelGauge, c)
	case "load":
		if c.field != "iload" {
			return nil, fieldError(c)
		}
		mA, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return set.OnBoardLoad.SetILoad(mA) }, nil
	}
	return nil, fmt.Errorf("%w: %s", errNoModule, c.module)
}

func chargerSet(ch *peripheral.Charger, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "enabled":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return ch.SetEnabled(on) }, nil
	case "recharge":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return ch.SetRecharge(on) }, nil
	case "vterm", "vtermr", "ichg", "vtricklefast":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		setter := map[string]func(float64) *shell.Future{
			"vterm":        ch.SetVTerm,
			"vtermr":       ch.SetVTermR,
			"ichg":         ch.SetIChg,
			"vtricklefast": ch.SetVTrickleFast,
		}[c.field]
		return func() *shell.Future { return setter(v) }, nil
	case "iterm":
		return func() *shell.Future { return ch.SetITerm(c.value) }, nil
	case "ntc":
		return func() *shell.Future { return ch.SetNTCThermistor(c.value) }, nil
	}
	return nil, fieldError(c)
}

func buckSet(b *peripheral.Buck, c setCommand) (func() *shell.Future, error) {
	i := c.index
	switch c.field {
	case "vout", "voutnormal":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return b.SetVOutNormal(i, v) }, nil
	case "vret", "voutretention":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return b.SetVOutRetention(i, v) }, nil
	case "mode":
		return func() *shell.Future { return b.SetMode(i, c.value) }, nil
	case "enabled":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return b.SetEnabled(i, on) }, nil
	case "discharge", "activedischarge":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return b.SetActiveDischarge(i, on) }, nil
	}
	return nil, fieldError(c)
}

func boostSet(b *peripheral.Boost, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "vout":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return b.SetVOut(v) }, nil
	case "mode":
		return func() *shell.Future { return b.SetMode(c.value) }, nil
	}
	return nil, fieldError(c)
}

func ldoSet(l *peripheral.Ldo, c setCommand) (func() *shell.Future, error) {
	i := c.index
	switch c.field {
	case "enabled":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return l.SetEnabled(i, on) }, nil
	case "voltage", "vout":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return l.SetVoltage(i, v) }, nil
	case "mode":
		return func() *shell.Future { return l.SetMode(i, c.value) }, nil
	case "softstart":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return l.SetSoftStart(i, on) }, nil
	}
	return nil, fieldError(c)
}

func gpioSet(g *peripheral.Gpio, c setCommand) (func() *shell.Future, error) {
	i := c.index
	switch c.field {
	case "mode":
		return func() *shell.Future { return g.SetMode(i, c.value) }, nil
	case "pull":
		return func() *shell.Future { return g.SetPull(i, c.value) }, nil
	case "drive":
		mA, err := parseInt(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return g.SetDrive(i, mA) }, nil
	case "opendrain", "debounce":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		if c.field == "opendrain" {
			return func() *shell.Future { return g.SetOpenDrain(i, on) }, nil
		}
		return func() *shell.Future { return g.SetDebounce(i, on) }, nil
	}
	return nil, fieldError(c)
}

func pofSet(p *peripheral.Pof, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "enabled", "enable":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return p.SetEnabled(on) }, nil
	case "polarity":
		return func() *shell.Future { return p.SetPolarity(c.value) }, nil
	case "threshold":
		v, err := parseFloat(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return p.SetThreshold(v) }, nil
	}
	return nil, fieldError(c)
}

func shipSet(s *peripheral.Ship, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "timetoactive":
		ms, err := parseInt(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return s.SetTimeToActive(ms) }, nil
	case "invpolarity", "longpressreset":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		if c.field == "invpolarity" {
			return func() *shell.Future { return s.SetInvPolarity(on) }, nil
		}
		return func() *shell.Future { return s.SetLongPressReset(on) }, nil
	}
	return nil, fieldError(c)
}

func timerSet(t *peripheral.Timer, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "mode":
		return func() *shell.Future { return t.SetMode(c.value) }, nil
	case "prescaler":
		return func() *shell.Future { return t.SetPrescaler(c.value) }, nil
	case "period":
		ms, err := parseInt(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return t.SetPeriod(ms) }, nil
	}
	return nil, fieldError(c)
}

func fuelGaugeSet(f *peripheral.FuelGauge, c setCommand) (func() *shell.Future, error) {
	switch c.field {
	case "enabled":
		on, err := parseBool(c.value)
		if err != nil {
			return nil, err
		}
		return func() *shell.Future { return f.SetEnabled(on) }, nil
	case "model":
		return func() *shell.Future { return f.SetActiveModel(c.value) }, nil
	}
	return nil, fieldError(c)
}

func fieldError(c setCommand) error {
	return fmt.Errorf("%w: %s has no field %q", errNoField, c.module, c.field)
}

// =============================================================================
// Value Parsing
// =============================================================================

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errUsage, s)
	}
	return v, nil
}

// parseBool accepts on/off and yes/no on top of strconv's forms.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "enable", "enabled":
		return true, nil
	case "off", "no", "disable", "disabled":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not on or off", errUsage, s)
	}
	return v, nil
}
