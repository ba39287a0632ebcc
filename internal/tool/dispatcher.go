package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dispatcher routes (name, args) to the matching Tool and guarantees an
// in-band result for every input: unknown tools and handler panics both
// become `{"error": "..."}` strings rather than propagated errors, per
// spec §4.2's "the dispatcher never signals failure through control flow".
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher wraps registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch runs one tool call and always returns a textual result, never an
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]interface{}) (result string) {
	t, ok := d.registry.Lookup(name)
	if !ok {
		return errorEnvelope(fmt.Sprintf("unknown tool: %s", name))
	}

	defer func() {
		if r := recover(); r != nil {
			result = errorEnvelope(fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	return t.Execute(ctx, args)
}

// KindOf reports the Kind of a registered tool. The turn loop does not
// consult it; execute- and write-kind tools call the safety layer themselves.
func (d *Dispatcher) KindOf(name string) (Kind, bool) {
	t, ok := d.registry.Lookup(name)
	if !ok {
		return "", false
	}
	return t.Kind(), true
}

func errorEnvelope(message string) string {
	b, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal: failed to encode error"}`
	}
	return string(b)
}
