package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, true)
	logger.Verbose("test message: %s", "value")

	expected := "[VERBOSE] test message: value\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false)
	logger.Verbose("test message: %s", "value")

	if buf.String() != "" {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestConsoleLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false)
	logger.Info("Inserted chunk %d in %s (%.3f seconds.)", 1, "trips", 0.25)

	expected := "Inserted chunk 1 in trips (0.250 seconds.)\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestConsoleLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false)
	logger.Error("error message: %s", "value")

	expected := "[ERROR] error message: value\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestConsoleLogger_NoArgsKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false)
	logger.Info("100% done")

	if buf.String() != "100% done\n" {
		t.Errorf("got %q", buf.String())
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestConsoleLogger_ConcurrentSafety(t *testing.T) {
	out := &lockedBuffer{}
	logger := NewWriterLogger(out, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.buf.String()), "\n")
	if len(lines) != 30 {
		t.Errorf("Expected 30 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, "message") && !strings.Contains(line, "verbose") && !strings.Contains(line, "error") {
			t.Errorf("Line %d appears corrupted: %q", i, line)
		}
	}
}

func TestNullLogger_ConcurrentSafety(t *testing.T) {
	logger := NewNullLogger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}
	wg.Wait()
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Info("Inserted chunk %d in %s", 1, "trips")
	r.Verbose("details")
	r.Error("failed: %v", fmt.Errorf("boom"))

	if got := r.Messages(LevelInfo); len(got) != 1 || got[0] != "Inserted chunk 1 in trips" {
		t.Errorf("info messages = %v", got)
	}
	if !r.Contains("boom") {
		t.Error("expected recorded error message")
	}
	if len(r.Entries()) != 3 {
		t.Errorf("expected 3 entries, got %d", len(r.Entries()))
	}
}

func TestProgressLogger_ThrottlesFetchProgress(t *testing.T) {
	r := NewRecorder()
	p := NewProgressLogger(r, 100)

	p.FetchProgress(10, 250)
	p.FetchProgress(120, 250)
	p.FetchProgress(150, 250)
	p.FetchProgress(250, 250)
	p.BatchLoaded(0, 10, time.Second)

	got := r.Messages(LevelVerbose)
	want := []string{"Downloaded 120 B of 250 B", "Downloaded 250 B of 250 B"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProgressLogger_UnknownTotal(t *testing.T) {
	r := NewRecorder()
	p := NewProgressLogger(r, 1024)

	p.FetchProgress(3*1024*1024, -1)

	got := r.Messages(LevelVerbose)
	if len(got) != 1 || got[0] != "Downloaded 3.0 MiB" {
		t.Errorf("got %v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:         "0 B",
		1023:      "1023 B",
		1024:      "1.0 KiB",
		1536:      "1.5 KiB",
		512 << 10: "512 KiB",
		5 << 20:   "5.0 MiB",
		3 << 30:   "3.0 GiB",
		-1:        "0 B",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func BenchmarkConsoleLogger_VerboseDisabled(b *testing.B) {
	logger := NewConsoleLogger(false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Verbose("benchmark message %d", i)
	}
}

func ExampleNullLogger() {
	logger := NewNullLogger()
	logger.Info("This message is discarded")
	fmt.Println("Done")
	// Output:
	// Done
}
