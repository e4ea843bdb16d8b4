// Package transform implements the ordered, stateful, phase-scoped
// mutation pipeline applied to URP requests, responses, and stream
// events (spec.md §4.2).
package transform

import (
	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/urp"
)

// Phase scopes a Rule to either the request path (before dispatch) or
// the response path (non-streaming response, or every streamed event).
type Phase string

const (
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
)

// Rule is one entry of an effective transform rule list:
// principal.transforms ++ provider.transforms (spec.md §4.2.2).
type Rule struct {
	TransformType string
	Enabled       bool
	Phase         Phase
	Models        []string // glob patterns; nil/empty matches every model
	Config        map[string]any
}

// Config is a transform's parsed, validated configuration. Each
// transform defines its own concrete type and type-asserts it back out
// in Apply*; Config exists only so the engine can thread an opaque
// value through without knowing every transform's shape.
type Config any

// State is a transform's per-invocation mutable state, allocated once
// per client exchange via InitState and discarded afterwards. For
// streaming, the same State value is threaded through every event so
// a transform can keep cross-delta memory (e.g. an open XML tag).
type State any

// Transform is the capability interface every built-in (and any future
// custom) transform implements. Transforms are value types holding
// only immutable descriptors; all mutable state lives in the State
// value the engine threads through Apply*.
type Transform interface {
	TypeID() string
	SupportedPhases() []Phase
	ParseConfig(raw map[string]any) (Config, error)
	InitState() State

	ApplyRequest(req *urp.Request, cfg Config, state State) error
	ApplyResponse(resp *urp.Response, cfg Config, state State) error
	// ApplyStreamEvent consumes one input event and returns zero or
	// more output events. Most transforms return a one-element slice
	// (in-place mutation); a transform that needs to split an event at
	// an internal boundary (e.g. an XML tag spanning a delta) may
	// return more than one.
	ApplyStreamEvent(event urp.StreamEvent, cfg Config, state State) ([]urp.StreamEvent, error)
}

// NoopTransform supplies default no-op implementations; concrete
// transforms embed it and override only the methods relevant to their
// supported phase(s).
type NoopTransform struct{}

func (NoopTransform) ApplyRequest(*urp.Request, Config, State) error { return nil }
func (NoopTransform) ApplyResponse(*urp.Response, Config, State) error { return nil }
func (NoopTransform) ApplyStreamEvent(e urp.StreamEvent, _ Config, _ State) ([]urp.StreamEvent, error) {
	return []urp.StreamEvent{e}, nil
}

// Factory constructs a fresh Transform value.
type Factory func() Transform

// Registry is the process-wide, immutable-after-initialization map
// from stable transform_type string to Transform (spec.md §4.2.1,
// design note 9).
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry builds a registry populated with every built-in
// transform (see builtins.go's registeredFactories).
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Transform, len(registeredFactories))}
	for _, f := range registeredFactories {
		t := f()
		r.transforms[t.TypeID()] = t
	}
	return r
}

// Register adds or replaces a transform, for callers composing a
// registry with custom transforms beyond the built-in catalogue.
func (r *Registry) Register(t Transform) {
	r.transforms[t.TypeID()] = t
}

// Get looks up a transform by its stable type id.
func (r *Registry) Get(typeID string) (Transform, bool) {
	t, ok := r.transforms[typeID]
	return t, ok
}

// BuildStates allocates one State per rule, in order. Returns
// apperr.CodeTransformNotFound if any rule's transform_type is
// unregistered.
func BuildStates(rules []Rule, reg *Registry) ([]State, error) {
	states := make([]State, len(rules))
	for i, rule := range rules {
		t, ok := reg.Get(rule.TransformType)
		if !ok {
			return nil, apperr.Newf(apperr.CodeTransformNotFound, "unknown transform %q", rule.TransformType)
		}
		states[i] = t.InitState()
	}
	return states, nil
}

func ruleActive(r Rule, phase Phase, model string) bool {
	if !r.Enabled || r.Phase != phase {
		return false
	}
	if len(r.Models) == 0 {
		return true
	}
	for _, pattern := range r.Models {
		if ModelGlobMatch(pattern, model) {
			return true
		}
	}
	return false
}

func resolve(reg *Registry, rule Rule) (Transform, Config, error) {
	t, ok := reg.Get(rule.TransformType)
	if !ok {
		return nil, nil, apperr.Newf(apperr.CodeTransformNotFound, "unknown transform %q", rule.TransformType)
	}
	cfg, err := t.ParseConfig(rule.Config)
	if err != nil {
		return nil, nil, apperr.Newf(apperr.CodeTransformInvalidConfig, "%s: %v", rule.TransformType, err)
	}
	return t, cfg, nil
}

// ApplyRequest runs every enabled, model-matching Request-phase rule
// over req, in order.
func ApplyRequest(req *urp.Request, rules []Rule, states []State, currentModel string, reg *Registry) error {
	for i, rule := range rules {
		if !ruleActive(rule, PhaseRequest, currentModel) {
			continue
		}
		t, cfg, err := resolve(reg, rule)
		if err != nil {
			return err
		}
		if err := t.ApplyRequest(req, cfg, states[i]); err != nil {
			return apperr.Newf(apperr.CodeInvalidRequest, "%s: %v", rule.TransformType, err)
		}
	}
	return nil
}

// ApplyResponse runs every enabled, model-matching Response-phase rule
// over resp, in order (non-streaming path).
func ApplyResponse(resp *urp.Response, rules []Rule, states []State, currentModel string, reg *Registry) error {
	for i, rule := range rules {
		if !ruleActive(rule, PhaseResponse, currentModel) {
			continue
		}
		t, cfg, err := resolve(reg, rule)
		if err != nil {
			return err
		}
		if err := t.ApplyResponse(resp, cfg, states[i]); err != nil {
			return apperr.Newf(apperr.CodeInvalidRequest, "%s: %v", rule.TransformType, err)
		}
	}
	return nil
}

// ApplyStreamEvent replays every enabled, model-matching Response-phase
// rule over one stream event, threading the same persistent states
// across calls for the life of the stream (spec.md §4.2.2 step 4). A
// rule may expand one input event into several output events; later
// rules in the list see every event the earlier rules produced.
func ApplyStreamEvent(event urp.StreamEvent, rules []Rule, states []State, currentModel string, reg *Registry) ([]urp.StreamEvent, error) {
	events := []urp.StreamEvent{event}
	for i, rule := range rules {
		if !ruleActive(rule, PhaseResponse, currentModel) {
			continue
		}
		t, cfg, err := resolve(reg, rule)
		if err != nil {
			return nil, err
		}
		next := make([]urp.StreamEvent, 0, len(events))
		for _, e := range events {
			out, err := t.ApplyStreamEvent(e, cfg, states[i])
			if err != nil {
				return nil, apperr.Newf(apperr.CodeInvalidRequest, "%s: %v", rule.TransformType, err)
			}
			next = append(next, out...)
		}
		events = next
	}
	return events, nil
}
