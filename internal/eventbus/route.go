package eventbus

import (
	"context"

	"github.com/matthewbaird/entityui/internal/event"
)

// ForSession passes h the events addressed to session plus broadcast events.
func ForSession(session string, h Handler) Handler {
	return HandlerFunc(func(ctx context.Context, evt event.Event) error {
		if evt.Session != "" && evt.Session != session {
			return nil
		}
		return h.HandleEvent(ctx, evt)
	})
}

// OfType passes h only events of the given types.
func OfType(h Handler, types ...string) Handler {
	allow := make(map[string]bool, len(types))
	for _, t := range types {
		allow[t] = true
	}
	return HandlerFunc(func(ctx context.Context, evt event.Event) error {
		if !allow[evt.Type] {
			return nil
		}
		return h.HandleEvent(ctx, evt)
	})
}

// Invalidations adapts a bus to the sources' invalidation hook: each call
// publishes a data_changed event for entityName.
func Invalidations(b *Bus, entityName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		b.Publish(ctx, event.NewDataChanged(entityName, nil))
	}
}
