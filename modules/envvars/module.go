package envvars

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/dotmod/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Env prints the process environment as sorted KEY=value lines. An optional
// argument keeps only variables whose name contains it (case-insensitive).
func Env(ctx context.Context, call *handlers.Call) error {
	var filter string
	if len(call.Args) > 0 {
		filter = strings.ToUpper(call.Args[0])
	}

	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || key == "" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToUpper(key), filter) {
			continue
		}
		envMap[key] = value
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(call.Stdout, "%s=%s\n", k, envMap[k]); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the handler with the catalog.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("envvars.Env", &handlers.Handler{
		Description: "lists environment variables, optionally filtered by name",
		Fn:          Env,
	})
}
