package shell

import (
	"strconv"
	"strings"
	"time"
)

// Protocol constants for the evaluation kit shell.
const (
	// Prompt is printed by the firmware before every input line. It may be
	// glued to the front of the first reply line.
	Prompt = "uart:~$ "

	// ValuePrefix starts the reply to a get.
	ValuePrefix = "Value:"

	// SuccessPrefix starts the reply to a set or an action.
	SuccessPrefix = "Success:"

	// ErrorPrefix starts a rejection.
	ErrorPrefix = "Error:"

	// BootBanner is printed once when the firmware (re)starts.
	BootBanner = "*** Booting"

	// VerbGet and VerbSet discriminate queries from writes.
	VerbGet = "get"
	VerbSet = "set"

	// NoIndex marks a command addressed to a single-instance peripheral.
	NoIndex = -1

	// MaxLineLength is the longest line the firmware accepts.
	MaxLineLength = 4096

	// CommandTimeout is the default time a command may stay unanswered
	// before it fails with ErrTimeout.
	CommandTimeout = 5 * time.Second
)

// FormatGet returns the query command for stem, addressed to index unless
// index is NoIndex.
func FormatGet(stem string, index int) string {
	if index == NoIndex {
		return stem + " " + VerbGet
	}
	return stem + " " + VerbGet + " " + strconv.Itoa(index)
}

// FormatSet returns the write command for stem with the given wire value.
func FormatSet(stem string, index int, value string) string {
	if index == NoIndex {
		return stem + " " + VerbSet + " " + value
	}
	return stem + " " + VerbSet + " " + strconv.Itoa(index) + " " + value
}

// Key returns the normalized parameter stem used to decide whether two
// commands target the same parameter.
func Key(stem, verb string, index int) string {
	if index == NoIndex {
		return stem + " " + verb
	}
	return stem + " " + verb + " " + strconv.Itoa(index)
}

// trimPrompt removes any number of leading shell prompts from line.
func trimPrompt(line string) string {
	for strings.HasPrefix(line, Prompt) {
		line = line[len(Prompt):]
	}
	return strings.TrimSpace(line)
}
