// Package shell implements the line-oriented command shell spoken by the
// PMIC evaluation kit firmware, and the single command channel that
// serializes every request sent to it.
//
// # Protocol Overview
//
// The shell is half-duplex and human readable. One command is written per
// line and the firmware answers with one terminal reply line, optionally
// preceded by informational lines:
//
//	Request:          <stem> get [index]
//	                  <stem> set [index] <value>
//	Query reply:      Value: <value> [unit]
//	Write reply:      Success: <value> [unit]
//	Rejection:        Error: <message>
//	Unsolicited:      anything else (logs, boot banner, samples)
//
// Example session:
//
//	> npmx charger termination_voltage normal set 4200
//	< Success: 4200 mV.
//	> npmx buck voltage normal get 1
//	< Value: 3300 mV.
//	> npmx ldsw mode set 0 7
//	< Error: Wrong parameter value.
//
// # Basic Usage
//
// Create a registry, register persistent matchers against command text and
// start a channel over a transport:
//
//	reg := shell.NewRegistry()
//	reg.OnCommand(shell.CommandPattern("npmx charger module charger", false), func(m shell.Match) {
//	    on, err := shell.Boolean.Decode(m.Response)
//	    ...
//	})
//
//	ch := shell.NewChannel(transport, reg, shell.WithTimeout(5*time.Second))
//	ch.Start(ctx)
//	defer ch.Close()
//
//	ch.Enqueue(&shell.Command{
//	    Text:   "npmx charger module charger set 1",
//	    Unique: true,
//	    OnError: func(err error) { ... },
//	})
//
// Matchers fire for every confirmed exchange, regardless of who issued the
// command, so state follows commands typed by a user in a terminal just as
// it follows the ones issued by the engine.
//
// # Thread Safety
//
// Channel and Registry are safe for concurrent use. All command callbacks
// and matcher handlers run on the channel's pump goroutine, one at a time.
package shell
