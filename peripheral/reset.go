package peripheral

import (
	"regexp"
	"strconv"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// ResetCauses are the reasons the PMIC reports for its last reset.
var ResetCauses = []shell.EnumValue{
	{Name: "Power on", Wire: "POWER_ON"},
	{Name: "Boot monitor timeout", Wire: "BOOT_MONITOR_TIMEOUT"},
	{Name: "Watchdog timeout", Wire: "WATCHDOG_TIMEOUT"},
	{Name: "Long press", Wire: "LONG_PRESS"},
	{Name: "Thermal shutdown", Wire: "THERMAL_SHUTDOWN"},
	{Name: "VSYS low", Wire: "VSYS_LOW"},
	{Name: "Soft reset", Wire: "SOFT_RESET"},
}

// RebootDelay bounds the delay of a requested reboot in ms.
var RebootDelay = Range{Min: 0, Max: 60000}

const rebootStem = "delayed_reboot"

var (
	resetCause = field[string]{stem: "npmx reset_cause", codec: shell.Enum(ResetCauses...)}

	rebootingLine = regexp.MustCompile(`^(?:Rebooting|Resetting)\b`)
	bootLine      = regexp.MustCompile(`^` + regexp.QuoteMeta(shell.BootBanner))
)

var rebootPrompt = confirm.Prompt{
	Message:         "Rebooting resets every peripheral to its power-on configuration. Reboot now?",
	ConfirmLabel:    "Reboot",
	CancelLabel:     "Cancel",
	OptionalLabel:   "Reboot and do not ask again",
	DoNotAskAgainID: "rebootConfirm",
}

// Reset handles device restarts and reports the reset cause.
type Reset struct {
	*Base
}

// NewReset creates the reset module.
func NewReset(d Deps) *Reset {
	r := &Reset{Base: newBase("reset", d)}
	emit := func(v state.Reboot) { r.bus.Emit(eventbus.RebootUpdate, v) }

	r.onCommand(shell.CommandPattern(rebootStem, false), func(m shell.Match) {
		if m.Verb != shell.VerbSet {
			return
		}
		delay, _ := strconv.Atoi(m.Args)
		emit(state.Reboot{Phase: state.RebootRequested, Delay: delay})
	})
	r.onLine(rebootingLine, func(string, []string) {
		emit(state.Reboot{Phase: state.RebootRebooting})
	})
	r.onLine(bootLine, func(string, []string) {
		emit(state.Reboot{Phase: state.RebootBooted})
	})
	bind(r.Base, resetCause, func(_ int, v string) {
		r.bus.Emit(eventbus.PmicInfoUpdate, state.PmicInfoPatch{ResetCause: &v})
	})
	return r
}

// GetAll queries the reset cause.
func (r *Reset) GetAll() { r.GetResetCause() }

func (r *Reset) GetResetCause() { get(r.Base, resetCause, 0) }

// Reboot restarts the PMIC after delayMs, once confirmed.
func (r *Reset) Reboot(delayMs int) *shell.Future {
	if err := checkRange("delay", float64(delayMs), RebootDelay); err != nil {
		return shell.Rejected(err)
	}
	return r.gate.Wrap(rebootPrompt, func() *shell.Future {
		wire := strconv.Itoa(delayMs)
		return r.io.Write(Write{
			Command: shell.FormatSet(rebootStem, shell.NoIndex, wire),
			Echo:    wire,
		})
	})
}
