package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/pgingest/internal/cli"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and turns its error, or a panic, into an exit code.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			code = pgingest.ExitPanic
		}
	}()

	if os.Getenv("PGINGEST_TEST_PANIC") == "1" {
		panic("PGINGEST_TEST_PANIC is set")
	}
	return pgingest.ExitCodeForError(cli.Execute())
}
