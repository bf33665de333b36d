package phase

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/samber/oops"
)

// eventType is the reflect.Type of the Event interface.
var eventType = reflect.TypeOf((*Event)(nil)).Elem()

// busHandler holds a registered handler and its event methods.
type busHandler struct {
	name   string
	value  reflect.Value
	events map[reflect.Type]int

	// ifaces holds methods taking Event or an interface embedding it.
	ifaces []ifaceMethod
}

// ifaceMethod is an event method whose parameter is an interface type.
type ifaceMethod struct {
	typ reflect.Type
	idx int
}

// Bus delivers events to registered handlers synchronously.
//
// Handlers listen for events by implementing a method with the signature:
//
//	func (h *MyHandler) HandleSpawn(event *phase.SpawnEntityEvent)
//
// The method name does not matter, only the signature (one argument
// implementing Event). A method taking Event, or an interface embedding
// it, is called for every posted event that implements that interface,
// after the handler's method for the concrete type.
//
// Concurrency:
// Post runs every handler to completion on the calling goroutine, which is
// the world's simulation thread. Handlers may start further tracked
// operations; the Tracker stack is nesting-safe.
type Bus struct {
	handlers []*busHandler
	log      *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// Register adds a handler. Handlers are called in registration order.
// It returns an error if h has no event methods.
func (b *Bus) Register(h any) error {
	if h == nil {
		return oops.Code(CodeInvalidState).Errorf("phase: nil handler")
	}
	t := reflect.TypeOf(h)

	// Scan for event methods
	events := make(map[reflect.Type]int)
	var ifaces []ifaceMethod
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		// Check for 1 argument (plus receiver)
		if method.Type.NumIn() != 2 {
			continue
		}
		in := method.Type.In(1)
		if in.Kind() == reflect.Interface {
			if in.Implements(eventType) {
				ifaces = append(ifaces, ifaceMethod{typ: in, idx: i})
			}
			continue
		}
		if !in.Implements(eventType) {
			continue
		}
		events[in] = i
	}

	if len(events) == 0 && len(ifaces) == 0 {
		return oops.
			Code(CodeInvalidState).
			With("handler", t.String()).
			Errorf("phase: handler %s has no event methods", t)
	}

	b.handlers = append(b.handlers, &busHandler{
		name:   t.String(),
		value:  reflect.ValueOf(h),
		events: events,
		ifaces: ifaces,
	})
	return nil
}

// Post delivers e to every handler that listens for its type and returns
// whether the event ended up cancelled.
func (b *Bus) Post(e Event) bool {
	t := reflect.TypeOf(e)
	arg := []reflect.Value{reflect.ValueOf(e)}

	for _, h := range b.handlers {
		if methodIdx, ok := h.events[t]; ok {
			b.call(h, methodIdx, arg)
		}
		for _, m := range h.ifaces {
			if t.Implements(m.typ) {
				b.call(h, m.idx, arg)
			}
		}
	}
	return e.Cancelled()
}

// call invokes one handler method, recovering from panics.
func (b *Bus) call(h *busHandler, methodIdx int, arg []reflect.Value) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("phase: panic in event handler",
				"handler", h.name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	h.value.Method(methodIdx).Call(arg)
}

// Len returns the number of registered handlers.
func (b *Bus) Len() int {
	return len(b.handlers)
}
