package peripheral

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchInstance indicates an index beyond the model's instances.
	ErrNoSuchInstance = errors.New("no such instance")

	// ErrUnsupportedModel indicates a PMIC this engine has no layout for.
	ErrUnsupportedModel = errors.New("unsupported PMIC model")
)

// Model names a PMIC family member.
type Model string

// Supported models.
const (
	NPM1300 Model = "npm1300"
	NPM1304 Model = "npm1304"
	NPM2100 Model = "npm2100"
)

// ChargerLimits are the charger domains of a model.
type ChargerLimits struct {
	VTerm        Range // V
	IChg         Range // mA
	IChgStep     float64
	VTrickleFast []float64 // V
}

// Layout describes which peripherals a model has and their domains.
type Layout struct {
	Model Model

	Charger *ChargerLimits
	Bucks   int
	Boosts  int
	Ldos    int
	Gpios   int
	Leds    int
	Usb     bool

	// InterfaceBuck powers the kit's interface MCU. Lowering it below
	// InterfaceMin can drop the link. NoIndex when absent.
	InterfaceBuck int
	InterfaceMin  float64

	BuckVoltage  Range // V
	LdoVoltage   Range // V
	BoostVoltage Range // V
	PofThreshold Range // V
	UsbLimit     Range // A
	Load         Range // mA

	// LowPowerPrefix is the stem prefix of ship/hibernate commands.
	LowPowerPrefix string
}

var npm1300Charger = ChargerLimits{
	VTerm:        Range{3.5, 4.45},
	IChg:         Range{32, 800},
	IChgStep:     2,
	VTrickleFast: []float64{2.5, 2.9},
}

var layouts = map[Model]Layout{
	NPM1300: {
		Model:          NPM1300,
		Charger:        &npm1300Charger,
		Bucks:          2,
		Ldos:           2,
		Gpios:          5,
		Leds:           3,
		Usb:            true,
		InterfaceBuck:  1,
		InterfaceMin:   1.7,
		BuckVoltage:    Range{1.0, 3.3},
		LdoVoltage:     Range{1.0, 3.3},
		PofThreshold:   Range{2.6, 3.5},
		UsbLimit:       Range{0.1, 1.5},
		Load:           Range{0, 100},
		LowPowerPrefix: "npmx ship",
	},
	NPM1304: {
		Model: NPM1304,
		Charger: &ChargerLimits{
			VTerm:        Range{3.6, 4.65},
			IChg:         Range{4, 100},
			IChgStep:     1,
			VTrickleFast: []float64{2.5, 2.9},
		},
		Bucks:          2,
		Ldos:           2,
		Gpios:          5,
		Leds:           3,
		Usb:            true,
		InterfaceBuck:  1,
		InterfaceMin:   1.7,
		BuckVoltage:    Range{1.0, 3.3},
		LdoVoltage:     Range{1.0, 3.3},
		PofThreshold:   Range{2.6, 3.5},
		UsbLimit:       Range{0.1, 1.5},
		Load:           Range{0, 100},
		LowPowerPrefix: "npmx ship",
	},
	NPM2100: {
		Model:          NPM2100,
		Boosts:         1,
		Ldos:           1,
		Gpios:          2,
		InterfaceBuck:  -1,
		LdoVoltage:     Range{0.8, 3.0},
		BoostVoltage:   Range{1.8, 3.3},
		PofThreshold:   Range{0.7, 3.4},
		Load:           Range{0, 50},
		LowPowerPrefix: "npmx low_power_control",
	},
}

// LayoutFor returns the layout of m.
func LayoutFor(m Model) (Layout, error) {
	l, ok := layouts[Model(strings.ToLower(string(m)))]
	if !ok {
		return Layout{}, fmt.Errorf("%q: %w", m, ErrUnsupportedModel)
	}
	return l, nil
}

// Models lists the supported models.
func Models() []Model {
	return []Model{NPM1300, NPM1304, NPM2100}
}
