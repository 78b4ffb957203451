// =============================================================================
// dialog.go - Confirmation Prompts on the Terminal
// =============================================================================
//
// Operations that can cut the PMIC off (ship mode, hibernate, lowering the
// interface buck) ask before they run. The session's confirmation gate calls
// the handler below with the question; the handler prints it, reads one
// answer and calls exactly one of the request's callbacks:
//
//   y, yes      → OnConfirm
//   a, always   → OnOptional (only offered for prompts that can be skipped)
//   anything else, or end of input → OnCancel
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmicpanel/pmicsync/confirm"
)

// dialog answers confirmation requests from a lineReader.
type dialog struct {
	in  lineReader
	out io.Writer
}

// handle implements confirm.Handler.
func (d *dialog) handle(req confirm.Request) {
	fmt.Fprintln(d.out, req.Message)

	choices := "[y]es/[n]o"
	optional := req.OptionalLabel != "" && req.DoNotAskAgainID != "" && req.OnOptional != nil
	if optional {
		choices = "[y]es/[n]o/[a]lways"
	}

	answer, err := d.in.GetLine(choices + "? ")
	if err != nil {
		fmt.Fprintln(d.out)
		req.OnCancel()
		return
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		req.OnConfirm()
	case "a", "always":
		if optional {
			req.OnOptional()
			return
		}
		req.OnCancel()
	default:
		req.OnCancel()
	}
}
