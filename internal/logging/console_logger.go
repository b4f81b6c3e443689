package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	verboseLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// ConsoleLogger prints one line per message. Prefixes are colored only when
// the destination is a terminal and NO_COLOR is unset.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	color   bool
}

// NewConsoleLogger logs to stderr. Verbose lines are dropped unless verbose is set.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	l := NewWriterLogger(os.Stderr, verbose)
	l.color = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stderr.Fd()))
	return l
}

// NewWriterLogger logs uncolored lines to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, verbose: verbose}
}

func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if l.verbose {
		l.println(verboseLabel, "[VERBOSE] ", format, args)
	}
}

func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.println(lipgloss.Style{}, "", format, args)
}

func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.println(errorLabel, "[ERROR] ", format, args)
}

func (l *ConsoleLogger) println(style lipgloss.Style, label, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.color && label != "" {
		label = style.Render(label[:len(label)-1]) + " "
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, label+msg)
}
