// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// The REPL reads its input through a LineEditor that picks one of two modes:
//
//   - Interactive mode: ergochat/readline with Emacs keybindings, persistent
//     history and Ctrl-R history search.
//   - Non-interactive mode: a bufio.Scanner for piped input, e.g. a script
//     of shell commands fed on stdin or an Emacs comint buffer.
//
// History is stored at ~/.pmicctl_history with a 500-entry limit.
//
// Confirmation prompts read their answer through the same editor, so a
// piped script can answer "y" to a ship mode question on the next line.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is the history file in the user's home directory.
	historyFileName = ".pmicctl_history"

	// historySize is the maximum number of history entries to retain.
	historySize = 500
)

// GO CONCEPT: Interfaces and Structural Typing
// ---------------------------------------------
// Go interfaces are satisfied implicitly: a type implements an interface if
// it has the right methods. The REPL and the confirmation dialog only need
// GetLine, so they accept a lineReader and tests hand them a LineEditor
// built over a strings.Reader.
//
// Compare with Python: this is duck typing, checked by the compiler.
type lineReader interface {
	GetLine(prompt string) (string, error)
}

// LineEditor wraps line editing with dual-mode operation.
type LineEditor struct {
	// interactive is true when stdin is a TTY.
	interactive bool

	// rl is the readline instance used in interactive mode, nil otherwise.
	rl *readline.Instance

	// scanner and out are used in non-interactive mode.
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLineEditor creates a LineEditor with automatic mode detection.
//
// Under Emacs (INSIDE_EMACS set) the editor is always non-interactive
// because Emacs provides its own line editing.
func NewLineEditor() *LineEditor {
	// golang.org/x/term.IsTerminal() checks if a file descriptor is a
	// terminal. os.Stdin.Fd() returns uintptr, IsTerminal expects int.
	isInteractive := term.IsTerminal(int(os.Stdin.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return newPipedEditor(os.Stdin, os.Stdout)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  filepath.Join(homeDir(), historyFileName),
		HistoryLimit: historySize,

		// Lines are saved manually so empty input stays out of history.
		DisableAutoSaveHistory: true,
		Prompt:                 "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newPipedEditor(os.Stdin, os.Stdout)
	}

	return &LineEditor{interactive: true, rl: rl}
}

// newPipedEditor reads lines from r and prints prompts to out.
func newPipedEditor(r io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{scanner: bufio.NewScanner(r), out: out}
}

// GetLine reads a line with the given prompt. It returns io.EOF on Ctrl-D,
// on Ctrl-C and when piped input is exhausted.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	if le.rl == nil {
		return "", io.EOF
	}
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	// The prompt still matters for comint, which finds user input by
	// matching it.
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close saves history and releases the terminal. It is safe to call more
// than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether the editor runs on a TTY.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}

// homeDir returns the user's home directory, or "." if it is unknown.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
