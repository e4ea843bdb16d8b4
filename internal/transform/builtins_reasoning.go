package transform

import (
	"fmt"
	"strings"

	"github.com/monoize-go/monoize/internal/urp"
)

// reasoningEffortToBudget maps a client's coarse reasoning.effort to a
// provider-specific numeric thinking budget written into
// extra_body.thinking.budget_tokens. Grounded on
// transforms/reasoning_effort_to_budget.rs.
type reasoningEffortToBudget struct{ NoopTransform }

type reasoningEffortToBudgetConfig struct {
	Low, Med, High uint32
}

func (reasoningEffortToBudget) TypeID() string          { return "reasoning_effort_to_budget" }
func (reasoningEffortToBudget) SupportedPhases() []Phase { return []Phase{PhaseRequest} }
func (reasoningEffortToBudget) InitState() State         { return nil }

func (reasoningEffortToBudget) ParseConfig(raw map[string]any) (Config, error) {
	low, err := requireUint32(raw, "low")
	if err != nil {
		return nil, err
	}
	med, err := requireUint32(raw, "med")
	if err != nil {
		return nil, err
	}
	high, err := requireUint32(raw, "high")
	if err != nil {
		return nil, err
	}
	return reasoningEffortToBudgetConfig{Low: low, Med: med, High: high}, nil
}

func (reasoningEffortToBudget) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	if req.Reasoning == nil || req.Reasoning.Effort == nil {
		return nil
	}
	c := cfg.(reasoningEffortToBudgetConfig)
	var budget uint32
	switch *req.Reasoning.Effort {
	case "low":
		budget = c.Low
	case "medium":
		budget = c.Med
	case "high":
		budget = c.High
	default:
		return nil
	}
	if req.ExtraBody == nil {
		req.ExtraBody = urp.ExtraBody{}
	}
	SetExtraPath(req.ExtraBody, "thinking.budget_tokens", budget)
	return nil
}

// reasoningEffortToModelSuffix appends a model-name suffix derived from
// the requested reasoning effort, on the first glob rule that matches
// the model. Grounded on transforms/reasoning_effort_to_model_suffix.rs.
type reasoningEffortToModelSuffix struct{ NoopTransform }

type modelSuffixRule struct {
	Pattern string
	Suffix  string
}

type reasoningEffortToModelSuffixConfig struct {
	Rules []modelSuffixRule
}

func (reasoningEffortToModelSuffix) TypeID() string          { return "reasoning_effort_to_model_suffix" }
func (reasoningEffortToModelSuffix) SupportedPhases() []Phase { return []Phase{PhaseRequest} }
func (reasoningEffortToModelSuffix) InitState() State         { return nil }

func (reasoningEffortToModelSuffix) ParseConfig(raw map[string]any) (Config, error) {
	rawRules, ok := raw["rules"].([]any)
	if !ok || len(rawRules) == 0 {
		return nil, &configError{msg: `"rules" must be a non-empty array`}
	}
	rules := make([]modelSuffixRule, 0, len(rawRules))
	for _, rr := range rawRules {
		m, ok := rr.(map[string]any)
		if !ok {
			return nil, &configError{msg: "each rule must be an object"}
		}
		pattern, err := requireString(m, "pattern")
		if err != nil {
			return nil, err
		}
		suffix, err := requireString(m, "suffix")
		if err != nil {
			return nil, err
		}
		rules = append(rules, modelSuffixRule{Pattern: pattern, Suffix: suffix})
	}
	return reasoningEffortToModelSuffixConfig{Rules: rules}, nil
}

func (reasoningEffortToModelSuffix) ApplyRequest(req *urp.Request, cfg Config, _ State) error {
	if req.Reasoning == nil || req.Reasoning.Effort == nil {
		return nil
	}
	effort := *req.Reasoning.Effort
	if effort != "low" && effort != "medium" && effort != "high" {
		return nil
	}
	c := cfg.(reasoningEffortToModelSuffixConfig)
	for _, rule := range c.Rules {
		if ModelGlobMatch(rule.Pattern, req.Model) {
			suffix := strings.ReplaceAll(rule.Suffix, "{effort}", effort)
			req.Model += suffix
			return nil
		}
	}
	return nil
}

// reasoningToThinkXML rewrites Reasoning parts/deltas into text wrapped
// in a literal XML tag, for upstreams that expect reasoning inline in
// the text stream. Grounded on transforms/reasoning_to_think_xml.rs.
type reasoningToThinkXML struct{ NoopTransform }

type thinkXMLConfig struct{ Tag string }

func (reasoningToThinkXML) TypeID() string          { return "reasoning_to_think_xml" }
func (reasoningToThinkXML) SupportedPhases() []Phase { return []Phase{PhaseResponse} }
func (reasoningToThinkXML) InitState() State         { return nil }

func (reasoningToThinkXML) ParseConfig(raw map[string]any) (Config, error) {
	tag, err := requireString(raw, "tag")
	if err != nil {
		return nil, err
	}
	return thinkXMLConfig{Tag: tag}, nil
}

func (reasoningToThinkXML) ApplyResponse(resp *urp.Response, cfg Config, _ State) error {
	c := cfg.(thinkXMLConfig)
	parts := resp.Message.Parts
	out := make([]urp.Part, len(parts))
	for i, p := range parts {
		if rp, ok := p.(*urp.ReasoningPart); ok {
			out[i] = &urp.TextPart{
				Content:   wrapTag(c.Tag, rp.Content),
				ExtraBody: rp.ExtraBody.Clone(),
			}
			continue
		}
		out[i] = p
	}
	resp.Message.Parts = out
	return nil
}

func (reasoningToThinkXML) ApplyStreamEvent(event urp.StreamEvent, cfg Config, _ State) ([]urp.StreamEvent, error) {
	c := cfg.(thinkXMLConfig)
	switch e := event.(type) {
	case urp.PartStart:
		if e.Part.Kind == urp.PartHeaderReasoning {
			e.Part.Kind = urp.PartHeaderText
		}
		return []urp.StreamEvent{e}, nil
	case urp.Delta:
		if e.Delta.Kind == urp.PartDeltaReasoning {
			e.Delta.Kind = urp.PartDeltaText
			e.Delta.Content = wrapTag(c.Tag, e.Delta.Content)
		}
		return []urp.StreamEvent{e}, nil
	default:
		return []urp.StreamEvent{event}, nil
	}
}

func wrapTag(tag, content string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, content, tag)
}

// thinkXMLToReasoning is the inverse of reasoningToThinkXML: it splits
// text carrying a literal <tag>...</tag> span back into Reasoning and
// Text parts/deltas. Grounded on transforms/think_xml_to_reasoning.rs,
// with a deliberate behavioral deviation for streaming: the Rust
// original does a single substring check per delta and can never split
// one input delta into multiple output events; this Go port instead
// loops over tag boundaries within a single delta so a delta that both
// closes and later reopens the tag (or contains a full <tag>...</tag>
// span) produces the correct sequence of Reasoning/Text deltas in one
// pass, matching spec.md's literal streaming scenario. Non-streaming
// responses already required this looping (one part can contain many
// tag spans) so only the streaming path changes behavior.
type thinkXMLToReasoning struct{ NoopTransform }

type thinkXMLToReasoningState struct {
	InReasoning map[uint32]bool
}

func (thinkXMLToReasoning) TypeID() string          { return "think_xml_to_reasoning" }
func (thinkXMLToReasoning) SupportedPhases() []Phase { return []Phase{PhaseResponse} }

func (thinkXMLToReasoning) InitState() State {
	return &thinkXMLToReasoningState{InReasoning: map[uint32]bool{}}
}

func (thinkXMLToReasoning) ParseConfig(raw map[string]any) (Config, error) {
	tag, err := requireString(raw, "tag")
	if err != nil {
		return nil, err
	}
	return thinkXMLConfig{Tag: tag}, nil
}

func (thinkXMLToReasoning) ApplyResponse(resp *urp.Response, cfg Config, _ State) error {
	c := cfg.(thinkXMLConfig)
	openTag, closeTag := "<"+c.Tag+">", "</"+c.Tag+">"

	var out []urp.Part
	for _, p := range resp.Message.Parts {
		tp, ok := p.(*urp.TextPart)
		if !ok {
			out = append(out, p)
			continue
		}
		inReasoning := false
		remaining := tp.Content
		for {
			if !inReasoning {
				idx := strings.Index(remaining, openTag)
				if idx == -1 {
					if remaining != "" {
						out = append(out, &urp.TextPart{Content: remaining, ExtraBody: tp.ExtraBody.Clone()})
					}
					break
				}
				if before := remaining[:idx]; before != "" {
					out = append(out, &urp.TextPart{Content: before, ExtraBody: tp.ExtraBody.Clone()})
				}
				inReasoning = true
				remaining = remaining[idx+len(openTag):]
				continue
			}
			idx := strings.Index(remaining, closeTag)
			if idx == -1 {
				if remaining != "" {
					out = append(out, &urp.ReasoningPart{Content: remaining, ExtraBody: tp.ExtraBody.Clone()})
				}
				break
			}
			if before := remaining[:idx]; before != "" {
				out = append(out, &urp.ReasoningPart{Content: before, ExtraBody: tp.ExtraBody.Clone()})
			}
			inReasoning = false
			remaining = remaining[idx+len(closeTag):]
		}
	}
	resp.Message.Parts = out
	return nil
}

func (thinkXMLToReasoning) ApplyStreamEvent(event urp.StreamEvent, cfg Config, state State) ([]urp.StreamEvent, error) {
	c := cfg.(thinkXMLConfig)
	st := state.(*thinkXMLToReasoningState)
	openTag, closeTag := "<"+c.Tag+">", "</"+c.Tag+">"

	switch e := event.(type) {
	case urp.PartStart:
		if e.Part.Kind == urp.PartHeaderText {
			st.InReasoning[e.PartIndex] = false
		}
		return []urp.StreamEvent{e}, nil

	case urp.PartDone:
		delete(st.InReasoning, e.PartIndex)
		return []urp.StreamEvent{e}, nil

	case urp.Delta:
		if e.Delta.Kind != urp.PartDeltaText {
			return []urp.StreamEvent{e}, nil
		}
		inReasoning := st.InReasoning[e.PartIndex]
		var out []urp.StreamEvent
		remaining := e.Delta.Content
		for {
			if !inReasoning {
				idx := strings.Index(remaining, openTag)
				if idx == -1 {
					if remaining != "" {
						out = append(out, textDelta(e, remaining))
					}
					break
				}
				if before := remaining[:idx]; before != "" {
					out = append(out, textDelta(e, before))
				}
				inReasoning = true
				remaining = remaining[idx+len(openTag):]
				continue
			}
			idx := strings.Index(remaining, closeTag)
			if idx == -1 {
				if remaining != "" {
					out = append(out, reasoningDelta(e, remaining))
				}
				break
			}
			if before := remaining[:idx]; before != "" {
				out = append(out, reasoningDelta(e, before))
			}
			inReasoning = false
			remaining = remaining[idx+len(closeTag):]
		}
		st.InReasoning[e.PartIndex] = inReasoning
		return out, nil

	default:
		return []urp.StreamEvent{event}, nil
	}
}

func textDelta(src urp.Delta, content string) urp.StreamEvent {
	src.Delta = urp.PartDelta{Kind: urp.PartDeltaText, Content: content}
	return src
}

func reasoningDelta(src urp.Delta, content string) urp.StreamEvent {
	src.Delta = urp.PartDelta{Kind: urp.PartDeltaReasoning, Content: content}
	return src
}

// stripReasoning drops Reasoning/ReasoningEncrypted content entirely.
// Grounded on transforms/strip_reasoning.rs.
type stripReasoning struct{ NoopTransform }

type stripReasoningState struct {
	StrippedIndices map[uint32]bool
}

func (stripReasoning) TypeID() string          { return "strip_reasoning" }
func (stripReasoning) SupportedPhases() []Phase { return []Phase{PhaseResponse} }
func (stripReasoning) InitState() State {
	return &stripReasoningState{StrippedIndices: map[uint32]bool{}}
}
func (stripReasoning) ParseConfig(map[string]any) (Config, error) { return struct{}{}, nil }

func (stripReasoning) ApplyResponse(resp *urp.Response, _ Config, _ State) error {
	resp.Message.Parts = StripReasoningParts(resp.Message.Parts)
	return nil
}

func (stripReasoning) ApplyStreamEvent(event urp.StreamEvent, _ Config, state State) ([]urp.StreamEvent, error) {
	st := state.(*stripReasoningState)
	switch e := event.(type) {
	case urp.PartStart:
		if e.Part.Kind == urp.PartHeaderReasoning || e.Part.Kind == urp.PartHeaderReasoningEncrypted {
			st.StrippedIndices[e.PartIndex] = true
			e.Part.Kind = urp.PartHeaderText
		}
		return []urp.StreamEvent{e}, nil
	case urp.Delta:
		if st.StrippedIndices[e.PartIndex] &&
			(e.Delta.Kind == urp.PartDeltaReasoning || e.Delta.Kind == urp.PartDeltaReasoningEncrypted) {
			e.Delta = urp.PartDelta{Kind: urp.PartDeltaText, Content: ""}
		}
		return []urp.StreamEvent{e}, nil
	default:
		return []urp.StreamEvent{event}, nil
	}
}
