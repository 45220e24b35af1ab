package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("syncengine.conflict_detected", "syncengine.event_failed")

	registry.Register(handler, "syncengine.conflict_detected", "syncengine.event_failed")

	handlers := registry.GetHandlers("syncengine.conflict_detected")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("syncengine.event_failed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("syncengine.batch_completed")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler() // no event types = wildcard

	registry.Register(handler)

	handlers := registry.GetHandlers("syncengine.conflict_detected")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("any.event.type")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("syncengine.conflict_detected")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "syncengine.conflict_detected")
	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("syncengine.conflict_detected")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("syncengine.batch_completed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcardHandler, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("syncengine.event_failed")
	handler2 := newMockHandler("syncengine.event_failed")

	registry.Register(handler1, "syncengine.event_failed")
	registry.Register(handler2, "syncengine.event_failed")

	handlers := registry.GetHandlers("syncengine.event_failed")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("syncengine.event_failed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcardHandler := newMockHandler()

	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("any.event")
	assert.Len(t, handlers, 1)

	registry.Unregister(wildcardHandler)

	handlers = registry.GetHandlers("any.event")
	assert.Len(t, handlers, 0)
}
