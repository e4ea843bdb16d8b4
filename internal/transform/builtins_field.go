package transform

import "github.com/monoize-go/monoize/internal/urp"

// setField writes a literal value at a dotted extra_body path on
// whichever of request, response, or stream event is in flight.
// Grounded on transforms/set_field.rs.
type setField struct{ NoopTransform }

type setFieldConfig struct {
	Path  string
	Value any
}

func (setField) TypeID() string          { return "set_field" }
func (setField) SupportedPhases() []Phase { return []Phase{PhaseRequest, PhaseResponse} }
func (setField) InitState() State         { return nil }

func (setField) ParseConfig(raw map[string]any) (Config, error) {
	path, err := requireString(raw, "path")
	if err != nil {
		return nil, err
	}
	value, ok := raw["value"]
	if !ok {
		return nil, &configError{msg: `missing required field "value"`}
	}
	return setFieldConfig{Path: path, Value: value}, nil
}

func (setField) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	c := cfg.(setFieldConfig)
	if req.ExtraBody == nil {
		req.ExtraBody = urp.ExtraBody{}
	}
	SetExtraPath(req.ExtraBody, c.Path, c.Value)
	return nil
}

func (setField) ApplyResponse(resp *urp.Response, cfg Config, _ State) error {
	c := cfg.(setFieldConfig)
	if resp.ExtraBody == nil {
		resp.ExtraBody = urp.ExtraBody{}
	}
	SetExtraPath(resp.ExtraBody, c.Path, c.Value)
	return nil
}

func (setField) ApplyStreamEvent(event urp.StreamEvent, cfg Config, _ State) ([]urp.StreamEvent, error) {
	c := cfg.(setFieldConfig)
	event = withStreamExtra(event, func(extra urp.ExtraBody) urp.ExtraBody {
		if extra == nil {
			extra = urp.ExtraBody{}
		}
		SetExtraPath(extra, c.Path, c.Value)
		return extra
	})
	return []urp.StreamEvent{event}, nil
}

// removeField deletes the value at a dotted extra_body path. Grounded
// on transforms/remove_field.rs.
type removeField struct{ NoopTransform }

type removeFieldConfig struct{ Path string }

func (removeField) TypeID() string          { return "remove_field" }
func (removeField) SupportedPhases() []Phase { return []Phase{PhaseRequest, PhaseResponse} }
func (removeField) InitState() State         { return nil }

func (removeField) ParseConfig(raw map[string]any) (Config, error) {
	path, err := requireString(raw, "path")
	if err != nil {
		return nil, err
	}
	return removeFieldConfig{Path: path}, nil
}

func (removeField) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	c := cfg.(removeFieldConfig)
	if req.ExtraBody != nil {
		RemoveExtraPath(req.ExtraBody, c.Path)
	}
	return nil
}

func (removeField) ApplyResponse(resp *urp.Response, cfg Config, _ State) error {
	c := cfg.(removeFieldConfig)
	if resp.ExtraBody != nil {
		RemoveExtraPath(resp.ExtraBody, c.Path)
	}
	return nil
}

func (removeField) ApplyStreamEvent(event urp.StreamEvent, cfg Config, _ State) ([]urp.StreamEvent, error) {
	c := cfg.(removeFieldConfig)
	event = withStreamExtra(event, func(extra urp.ExtraBody) urp.ExtraBody {
		if extra != nil {
			RemoveExtraPath(extra, c.Path)
		}
		return extra
	})
	return []urp.StreamEvent{event}, nil
}

// withStreamExtra rewrites the extra_body map carried by any StreamEvent
// variant through fn, returning the event with the (possibly replaced,
// e.g. freshly allocated) map written back. Every StreamEvent variant is
// a value type, so the updated field must be written back into a new
// struct value rather than mutated through a pointer.
func withStreamExtra(event urp.StreamEvent, fn func(urp.ExtraBody) urp.ExtraBody) urp.StreamEvent {
	switch e := event.(type) {
	case urp.ResponseStart:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	case urp.PartStart:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	case urp.Delta:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	case urp.PartDone:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	case urp.ResponseDone:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	case urp.Error:
		e.ExtraBody = fn(e.ExtraBody)
		return e
	default:
		return event
	}
}
