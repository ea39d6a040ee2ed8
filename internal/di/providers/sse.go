package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/sse"
)

// ProvideSSEHub provides the server-sent events hub.
func ProvideSSEHub(i do.Injector) (*sse.Hub, error) {
	log := do.MustInvoke[*slog.Logger](i)
	return sse.NewHub(log), nil
}

// ProvideSSEHandler provides the SSE stream handler.
func ProvideSSEHandler(i do.Injector) (*sse.Handler, error) {
	hub := do.MustInvoke[*sse.Hub](i)
	log := do.MustInvoke[*slog.Logger](i)
	return sse.NewHandler(hub, log), nil
}
