package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Echo prints its arguments separated by single spaces.
func Echo(ctx context.Context, call *handlers.Call) error {
	ctxlog.FromContext(ctx).Debug("Echoing arguments.", "count", len(call.Args))
	_, err := fmt.Fprintln(call.Stdout, strings.Join(call.Args, " "))
	return err
}

// Register registers the handler with the catalog.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("echo.Echo", &handlers.Handler{
		Description: "prints its arguments",
		Fn:          Echo,
	})
}
