// Package ingress mounts the five wire-dialect endpoints of spec.md
// §6 (OpenAI Responses, OpenAI Chat Completions, Anthropic Messages,
// Google Gemini generateContent, xAI Grok) and drives one request
// through decode -> model resolution -> request-phase transforms ->
// dispatch -> response-phase transforms -> encode, or for a streaming
// request, decode -> resolution -> request-phase transforms ->
// streaming dispatch -> streaming.Pump. Grounded on the shape of the
// teacher's internal/handlers/proxy.go ServeHTTP (read body, resolve,
// dispatch, branch on streaming, write response) — none of its
// per-provider transformation code survives, since internal/codec
// already generalizes exactly that concern across all five dialects.
package ingress

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/monoize-go/monoize/internal/apperr"
	"github.com/monoize-go/monoize/internal/codec"
	"github.com/monoize-go/monoize/internal/core"
	"github.com/monoize-go/monoize/internal/middleware"
	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/streaming"
	"github.com/monoize-go/monoize/internal/transform"
	"github.com/monoize-go/monoize/internal/urp"
	"github.com/monoize-go/monoize/internal/usage"
)

// Handler answers requests arriving in one client-facing wire dialect,
// routing them through a shared Registry/transform Registry.
type Handler struct {
	Dialect    routing.Dialect
	Registry   *routing.Registry
	Transforms *transform.Registry
	Dispatch   routing.DispatchConfig
	Logger     *slog.Logger
}

// New constructs a Handler bound to one client dialect. Mount five of
// these, one per endpoint in spec.md §6.
func New(dialect routing.Dialect, registry *routing.Registry, transforms *transform.Registry, dispatch routing.DispatchConfig, logger *slog.Logger) *Handler {
	return &Handler{Dialect: dialect, Registry: registry, Transforms: transforms, Dispatch: dispatch, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthenticated, "missing authenticated principal"))
		return
	}

	clientCodec, ok := codec.Dialects[h.Dialect]
	if !ok {
		writeError(w, apperr.Newf(apperr.CodeInvalidRequest, "no codec registered for dialect %q", h.Dialect))
		return
	}

	raw, err := readJSON(r)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInvalidRequest, "malformed request body: %v", err))
		return
	}

	if h.Dialect == routing.DialectGemini {
		if model, ok := modelFromGeminiPath(r.URL.Path); ok {
			raw["model"] = model
		}
	}

	req, err := clientCodec.DecodeRequest(raw)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInvalidRequest, "%v", err).WithParam("body"))
		return
	}

	if !principal.Allows(req.Model) {
		writeError(w, apperr.Newf(apperr.CodeModelNotAllowed, "model %q is not permitted for this tenant", req.Model).WithParam("model"))
		return
	}

	res, err := h.Registry.ResolveModel(req.Model)
	if err != nil {
		writeApperr(w, err, apperr.CodeModelNotFound)
		return
	}

	rules := make([]transform.Rule, 0, len(principal.Transforms)+len(res.Provider.Transforms))
	rules = append(rules, principal.Transforms...)
	rules = append(rules, res.Provider.Transforms...)

	states, err := transform.BuildStates(rules, h.Transforms)
	if err != nil {
		writeApperr(w, err, apperr.CodeTransformNotFound)
		return
	}
	if err := transform.ApplyRequest(req, rules, states, req.Model, h.Transforms); err != nil {
		writeApperr(w, err, apperr.CodeInvalidRequest)
		return
	}

	upstreamCodec, ok := codec.Dialects[res.Provider.Dialect]
	if !ok {
		writeError(w, apperr.Newf(apperr.CodeProviderDisabled, "no codec registered for provider dialect %q", res.Provider.Dialect))
		return
	}

	streamRequested := req.Stream != nil && *req.Stream
	if streamRequested {
		h.serveStream(w, r, req, res, rules, states, upstreamCodec)
		return
	}
	h.serveOnce(w, r, req, res, rules, states, upstreamCodec)
}

func (h *Handler) serveOnce(w http.ResponseWriter, r *http.Request, req *urp.Request, res routing.Resolution, rules []transform.Rule, states []transform.State, upstreamCodec codec.Dialect) {
	upstreamBody := upstreamCodec.EncodeRequest(req, res.UpstreamModel)
	bodyBytes, err := json.Marshal(upstreamBody)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInvalidRequest, "encode upstream request: %v", err))
		return
	}

	buildPath := func(d routing.Dialect, upstreamModel string) string { return routing.DialectPath(d, upstreamModel, false) }
	outcome, err := routing.Dispatch(r.Context(), h.Registry, h.Dispatch, req.Model, bodyBytes, buildPath)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	var rawResp map[string]any
	if err := json.Unmarshal(outcome.Result.Body, &rawResp); err != nil {
		writeError(w, apperr.Newf(apperr.CodeUpstreamStatus5xx, "malformed upstream response: %v", err))
		return
	}

	responseCodec, ok := codec.Dialects[outcome.Provider.Dialect]
	if !ok {
		writeError(w, apperr.Newf(apperr.CodeProviderDisabled, "no codec registered for provider dialect %q", outcome.Provider.Dialect))
		return
	}

	resp, err := responseCodec.DecodeResponse(rawResp)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeUpstreamStatus5xx, "decode upstream response: %v", err))
		return
	}

	if resp.Usage == nil {
		est := usage.EstimateUsage(requestText(req), urp.ContentText(resp.Message.Parts))
		resp.Usage = &est
	}

	if err := transform.ApplyResponse(resp, rules, states, req.Model, h.Transforms); err != nil {
		writeApperr(w, err, apperr.CodeInvalidRequest)
		return
	}

	clientCodec := codec.Dialects[h.Dialect]
	out := clientCodec.EncodeResponse(resp, req.Model)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.Logger.Warn("failed writing response body", "error", err)
	}
}

func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request, req *urp.Request, res routing.Resolution, rules []transform.Rule, states []transform.State, upstreamCodec codec.Dialect) {
	upstreamBody := upstreamCodec.EncodeRequest(req, res.UpstreamModel)
	bodyBytes, err := json.Marshal(upstreamBody)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInvalidRequest, "encode upstream request: %v", err))
		return
	}

	buildPath := func(d routing.Dialect, upstreamModel string) string { return routing.DialectPath(d, upstreamModel, true) }
	outcome, err := routing.DispatchStream(r.Context(), h.Registry, h.Dispatch, req.Model, bodyBytes, buildPath)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	defer outcome.Response.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	responseID := core.GenerateShortID()
	if err := streaming.Pump(r.Context(), w, outcome.Response, outcome.Provider.Dialect, h.Dialect, rules, states, req.Model, h.Transforms, responseID, req.Model); err != nil {
		h.Logger.Warn("stream pump ended with error", "error", err, "provider", outcome.Provider.ID, "channel", outcome.Channel.ID)
	}
}

// modelFromGeminiPath recovers the model name from a Gemini-dialect
// request path of the form "/v1beta/models/{model}:generateContent" or
// "/v1beta/models/{model}:streamGenerateContent", the inverse of
// routing.DialectPath's Gemini branch.
func modelFromGeminiPath(path string) (string, bool) {
	const prefix = "/v1beta/models/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	name, _, found := strings.Cut(rest, ":")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

func requestText(req *urp.Request) string {
	var sb strings.Builder
	for _, m := range req.Messages {
		sb.WriteString(urp.ContentText(m.Parts))
	}
	return sb.String()
}

func readJSON(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeError(w http.ResponseWriter, appErr *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(appErr.ToEnvelope())
}

// writeApperr writes err as an envelope, preserving its classification
// if it is already an *apperr.Error and falling back to fallback
// otherwise.
func writeApperr(w http.ResponseWriter, err error, fallback apperr.Code) {
	if ae, ok := apperr.As(err); ok {
		writeError(w, ae)
		return
	}
	writeError(w, apperr.New(fallback, err.Error()))
}

// writeDispatchError classifies a routing.Dispatch/DispatchStream error
// for the client, defaulting to upstream_network when the error carries
// no apperr classification (a bare transport error).
func writeDispatchError(w http.ResponseWriter, err error) {
	writeApperr(w, err, apperr.CodeUpstreamNetwork)
}
