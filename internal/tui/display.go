package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Display is a pgingest.ProgressSink that draws run progress on a terminal.
//
// The bubbletea program starts with the first progress event, so an overwrite
// prompt that runs before the download has stdin to itself. Input is never read
// by the program; Ctrl+C reaches the process as SIGINT.
type Display struct {
	title string
	out   io.Writer
	opts  []tea.ProgramOption

	mu      sync.Mutex
	base    pgingest.Logger
	program *tea.Program
	done    chan struct{}
	stopped bool
}

// NewDisplay creates a Display writing to stderr.
func NewDisplay(title string) *Display {
	return newDisplay(title, os.Stderr)
}

func newDisplay(title string, out io.Writer, opts ...tea.ProgramOption) *Display {
	return &Display{title: title, out: out, opts: opts}
}

// FetchProgress implements pgingest.ProgressSink.
func (d *Display) FetchProgress(transferred, total int64) {
	d.send(fetchMsg{transferred: transferred, total: total})
}

// BatchLoaded implements pgingest.ProgressSink.
func (d *Display) BatchLoaded(index int, rows int64, elapsed time.Duration) {
	d.send(batchMsg{index: index, rows: rows, elapsed: elapsed})
}

// Stop ends the program and waits until the terminal is restored.
// Events after Stop are dropped. Safe to call more than once.
func (d *Display) Stop() {
	d.mu.Lock()
	p, done := d.program, d.done
	d.stopped = true
	d.mu.Unlock()

	if p == nil {
		return
	}
	p.Send(doneMsg{})
	<-done
}

// Logger returns a pgingest.Logger that prints above the progress view while
// it is on screen and writes through base otherwise. A program that exits
// with an error reports it to base at Verbose.
func (d *Display) Logger(base pgingest.Logger, verbose bool) pgingest.Logger {
	d.mu.Lock()
	d.base = base
	d.mu.Unlock()
	return &displayLogger{display: d, base: base, verbose: verbose}
}

func (d *Display) send(msg tea.Msg) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.program == nil {
		d.start()
	}
	p := d.program
	d.mu.Unlock()

	// Send returns without delivering once the program has exited.
	p.Send(msg)
}

// start must be called with d.mu held.
func (d *Display) start() {
	opts := append([]tea.ProgramOption{
		tea.WithOutput(d.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	}, d.opts...)

	p := tea.NewProgram(newProgressModel(d.title), opts...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Run(); err != nil {
			d.mu.Lock()
			base := d.base
			d.mu.Unlock()
			if base != nil {
				base.Verbose("progress display exited: %v", err)
			}
		}
	}()

	d.program = p
	d.done = done
}

// active returns the running program, or nil before the first event and after Stop.
func (d *Display) active() *tea.Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil
	}
	return d.program
}

var _ pgingest.ProgressSink = (*Display)(nil)

type displayLogger struct {
	display *Display
	base    pgingest.Logger
	verbose bool
}

func (l *displayLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	if p := l.display.active(); p != nil {
		p.Send(logMsg(MutedStyle.Render("[VERBOSE] " + sprintf(format, args))))
		return
	}
	l.base.Verbose(format, args...)
}

func (l *displayLogger) Info(format string, args ...interface{}) {
	if p := l.display.active(); p != nil {
		p.Send(logMsg(sprintf(format, args)))
		return
	}
	l.base.Info(format, args...)
}

func (l *displayLogger) Error(format string, args ...interface{}) {
	if p := l.display.active(); p != nil {
		p.Send(logMsg(ErrorStyle.Render("[ERROR] " + sprintf(format, args))))
		return
	}
	l.base.Error(format, args...)
}

func sprintf(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
