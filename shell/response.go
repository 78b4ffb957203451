package shell

import (
	"strings"
)

// LineType classifies a line read from the firmware.
type LineType int

const (
	// LineInfo is an informational or unsolicited line.
	LineInfo LineType = iota
	// LineValue is the terminal reply to a get.
	LineValue
	// LineSuccess is the terminal reply to a set or an action.
	LineSuccess
	// LineError is a terminal rejection.
	LineError
	// LineEmpty is a blank line or a bare prompt.
	LineEmpty
)

// String returns the line type name.
func (t LineType) String() string {
	switch t {
	case LineInfo:
		return "info"
	case LineValue:
		return "value"
	case LineSuccess:
		return "success"
	case LineError:
		return "error"
	case LineEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Line is a classified firmware line with the prompt removed.
type Line struct {
	Type LineType
	Text string // the line without prompt or surrounding whitespace
	Data string // text after the reply prefix, for terminal lines
}

// IsTerminal reports whether the line ends the pending exchange.
func (l Line) IsTerminal() bool {
	return l.Type == LineValue || l.Type == LineSuccess || l.Type == LineError
}

// ClassifyLine strips any leading prompt from raw and classifies it.
func ClassifyLine(raw string) Line {
	text := trimPrompt(raw)
	if text == "" || text == strings.TrimSpace(Prompt) {
		return Line{Type: LineEmpty}
	}

	switch {
	case strings.HasPrefix(text, ValuePrefix):
		return Line{Type: LineValue, Text: text, Data: strings.TrimSpace(text[len(ValuePrefix):])}
	case strings.HasPrefix(text, SuccessPrefix):
		return Line{Type: LineSuccess, Text: text, Data: strings.TrimSpace(text[len(SuccessPrefix):])}
	case strings.HasPrefix(text, ErrorPrefix):
		return Line{Type: LineError, Text: text, Data: strings.TrimSpace(text[len(ErrorPrefix):])}
	default:
		return Line{Type: LineInfo, Text: text}
	}
}

// IsEcho reports whether line is the firmware echoing the command back.
func IsEcho(line Line, command string) bool {
	return line.Type == LineInfo && line.Text == strings.TrimSpace(command)
}

// IsBootBanner reports whether line announces a firmware start.
func IsBootBanner(line string) bool {
	return strings.HasPrefix(trimPrompt(line), BootBanner)
}
