package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/vk/dotmod/internal/config"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/shell"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Reset discards everything written so far.
func (b *SafeBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b.Reset()
}

// SetupAppTest creates a new app instance for system testing. It returns the
// app, its report output and its log output.
func SetupAppTest(t *testing.T, cfg *config.Config, runner shell.Runner, modules ...handlers.Module) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	outBuffer := &SafeBuffer{}
	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.NoColor = true
	testApp := NewApp(outBuffer, logBuffer, cfg, runner, modules...)

	t.Cleanup(func() {
		testApp.Close()
		if os.Getenv("DOTMOD_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, outBuffer, logBuffer
}
