// =============================================================================
// help.go - Help System
// =============================================================================
//
// ".help" prints the command overview, ".help <topic>" the detailed text of
// one command or one settable module. Topics are matched case-insensitively
// and a leading dot is ignored, so ".help .set" and ".help set" agree.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// printHelp writes the overview when topic is empty, otherwise the text for
// topic. Unknown topics are reported on errOut.
func printHelp(out, errOut io.Writer, topic string) {
	if topic == "" {
		fmt.Fprint(out, helpOverview)
		return
	}

	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), ".")

	// GO CONCEPT: Map Lookup with Comma-Ok Pattern
	// -----------------------------------------------
	// Go map lookups return (value, ok). If ok is false the value is the
	// zero value for the type, "" for strings.
	//
	// Compare with Python: text = command_help.get(key)
	if text, ok := commandHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}
	if text, ok := moduleHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}

	fmt.Fprintf(errOut, "Error: No help for '%s'. Topics: %s\n", topic, strings.Join(helpTopics(), " "))
}

// helpTopics returns every topic name, sorted.
func helpTopics() []string {
	var topics []string
	for k := range commandHelp {
		topics = append(topics, k)
	}
	for k := range moduleHelp {
		topics = append(topics, k)
	}
	sort.Strings(topics)
	return topics
}

const helpOverview = `Commands:
  .state [section]          Show the confirmed state (YAML)
  .get <module>             Re-query a module and show its state
  .set <module> [i] <f> <v> Write a field through its module
  .refresh                  Re-query every field
  .identify                 Probe the kit and rebuild the modules
  .ship                     Enter ship mode
  .hibernate <wake-ms>      Enter hibernate mode, wake on the timer
  .reboot [delay-ms]        Reboot the PMIC
  .profile start <mA> <ms>  Start battery profiling
  .profile stop             Stop battery profiling
  .samples [n]              Show the newest profiling samples
  .download <file>          Download a battery model to the fuel gauge
  .storemodel               Store the downloaded model in flash
  .ports                    List serial ports
  .help [topic]             Show help (or help for a topic)
  .quit                     Exit

Any other line is sent to the evaluation kit shell as typed.
Modules: charger buck boost ldo gpio led pof ship timer usb fuelgauge load reset profiling
`

// commandHelp holds the detailed text of each dot-command, keyed without
// the leading dot.
var commandHelp = map[string]string{
	"state": `  .state [section]
    Print the confirmed device state as YAML. A section name such as
    charger, bucks or fuelGauge limits the output to that part.
    Values change only after the device confirmed them.`,

	"set": `  .set <module> [index] <field> <value>
    Write one field. The index selects the instance of bucks, LDOs,
    GPIOs and LEDs and defaults to 0. Values are checked against the
    model's ranges before anything is sent.
    Example: .set buck 1 vout 1.8
    See .help <module> for the fields of a module.`,

	"get": `  .get <module>
    Query every field of one module again and print its state once the
    device answered. Module names are listed in the overview.`,

	"refresh": `  .refresh
    Query every field of every module again.`,

	"identify": `  .identify
    Ask the kit whether a PMIC is attached and which model it is, then
    rebuild the modules and query every field.`,

	"ship": `  .ship
    Put the PMIC into ship mode. It stops responding until the SHPHLD
    button is pressed. Asks for confirmation first.
    Fields for .set ship:
    timetoactive <ms>    invpolarity on|off
    longpressreset on|off`,

	"hibernate": `  .hibernate <wake-ms>
    Arm the timer for wake-ms milliseconds and enter hibernate mode.
    Asks for confirmation first.`,

	"reboot": `  .reboot [delay-ms]
    Reboot the PMIC after delay-ms milliseconds (0 to 60000, default 0).
    Writes are refused until the PMIC is identified again.`,

	"profile": `  .profile start <load-mA> <period-ms>
  .profile stop
    Battery profiling: charging is disabled, the on-board load draws
    load-mA and the kit reports a sample every period-ms.`,

	"samples": `  .samples [n]
    Show the newest n profiling samples (default 10).`,

	"download": `  .download <file>
    Send a battery model file to the fuel gauge in chunks. Progress is
    printed while the transfer runs. A failed transfer is aborted.`,

	"storemodel": `  .storemodel
    Store the downloaded battery model in the kit's flash. Asks for
    confirmation first.`,

	"ports": `  .ports
    List the serial ports of this machine.`,

	"help": `  .help [topic]
    Show the command overview, or the detailed help of a command or
    module.`,

	"quit": `  .quit
    Close the session and exit. Ctrl-D does the same.`,
}

// moduleHelp lists the fields .set accepts per module.
var moduleHelp = map[string]string{
	"charger": `  charger
    enabled on|off       recharge on|off
    vterm <V>            vtermr <V>
    ichg <mA>            vtricklefast <V>
    iterm 10%|20%        ntc <name>
    Changing vterm, ichg or vtricklefast stops charging first.`,

	"buck": `  buck <i>
    vout <V>             vret <V>
    mode vSet|software   enabled on|off
    discharge on|off
    The buck powering the kit interface asks before going below its
    safe voltage or being disabled.`,

	"boost": `  boost
    vout <V>             mode <name>`,

	"ldo": `  ldo <i>
    enabled on|off       voltage <V>
    mode LDO|loadSwitch  softstart on|off`,

	"gpio": `  gpio <i>
    mode <name>          pull <name>
    drive <mA>           opendrain on|off
    debounce on|off`,

	"led": `  led <i>
    mode <name>`,

	"pof": `  pof
    enabled on|off       polarity activeLow|activeHigh
    threshold <V>`,

	"timer": `  timer
    mode <name>          prescaler slow|fast
    period <ms>`,

	"usb": `  usb
    limit <A>`,

	"fuelgauge": `  fuelgauge
    enabled on|off       model <name>`,

	"load": `  load
    iload <mA>`,

	"reset": `  reset
    No writable fields. .get reset reads the reset cause, .reboot
    restarts the PMIC.`,

	"profiling": `  profiling
    No writable fields. See .help profile.`,
}
