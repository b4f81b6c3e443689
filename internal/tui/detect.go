package tui

import (
	"os"

	"golang.org/x/term"
)

// NonInteractiveEnv disables prompts and the live display when set to "1".
const NonInteractiveEnv = "PGINGEST_NON_INTERACTIVE"

type environment struct {
	getenv   func(string) string
	terminal func(fd uintptr) bool
}

var processEnv = environment{
	getenv:   os.Getenv,
	terminal: func(fd uintptr) bool { return term.IsTerminal(int(fd)) },
}

// Detect reports whether a person is at the terminal. When not, reason names
// the first signal that ruled it out. Prompts read stdin and the display draws
// on stderr, so both must be terminals.
func Detect() (interactive bool, reason string) {
	return processEnv.detect()
}

// IsInteractive is Detect without the reason.
func IsInteractive() bool {
	ok, _ := Detect()
	return ok
}

func (e environment) detect() (bool, string) {
	switch {
	case e.getenv(NonInteractiveEnv) == "1":
		return false, NonInteractiveEnv + "=1"
	case e.getenv("CI") != "":
		return false, "CI is set"
	case e.getenv("NO_COLOR") != "":
		return false, "NO_COLOR is set"
	case !e.terminal(os.Stdin.Fd()):
		return false, "stdin is not a terminal"
	case !e.terminal(os.Stderr.Fd()):
		return false, "stderr is not a terminal"
	}
	return true, ""
}
