package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It asks whether to continue (default yes) and
// then whether to overwrite the existing file (default no).
type InteractiveApprover struct {
	input  io.Reader
	output io.Writer
	reader *bufio.Reader
}

// NewInteractiveApprover creates an InteractiveApprover on stdin and stderr.
func NewInteractiveApprover() *InteractiveApprover {
	return &InteractiveApprover{input: os.Stdin, output: os.Stderr}
}

// ConfirmOverwrite asks the two questions in turn.
func (a *InteractiveApprover) ConfirmOverwrite(ctx context.Context, path string) (pgingest.OverwriteDecision, error) {
	fmt.Fprintf(a.output, "A file named %s already exists.\n", path)

	proceed, err := a.confirm(ctx, "Do you want to continue?", true)
	if err != nil || !proceed {
		return pgingest.OverwriteDecision{}, err
	}

	overwrite, err := a.confirm(ctx, fmt.Sprintf("Would you like to overwrite %s?", path), false)
	if err != nil {
		return pgingest.OverwriteDecision{}, err
	}
	return pgingest.OverwriteDecision{Proceed: true, Overwrite: overwrite}, nil
}

// confirm prompts until it gets a yes/no answer. An empty answer or end of
// input selects def.
func (a *InteractiveApprover) confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		fmt.Fprintf(a.output, "%s %s: ", question, hint)

		line, err := a.readLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.output)
			return def, nil
		}
		if err != nil {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(a.output, "Error: invalid input")
	}
}

// readLine reads one line with context cancellation support.
func (a *InteractiveApprover) readLine(ctx context.Context) (string, error) {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.input)
	}

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := a.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			ch <- result{err: err}
			return
		}
		ch <- result{line: line}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return r.line, r.err
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ pgingest.Approver = (*InteractiveApprover)(nil)
