package streaming

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
	"github.com/monoize-go/monoize/internal/urp"
)

// decompressReader wraps resp.Body according to its Content-Encoding,
// grounded verbatim on the teacher's proxy.go::decompressReader.
func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// writeEvent renders one client-dialect SSE payload, prefixing an
// "event: <type>" line when the dialect's convention names events.
func writeEvent(w http.ResponseWriter, named bool, obj map[string]any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if named {
		if t, ok := obj["type"].(string); ok && t != "" {
			if _, err := fmt.Fprintf(w, "event: %s\n", t); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flush(w)
	return nil
}

// Pump is the streaming adapter of spec.md §4.4. It reads upstreamResp
// as a sequence of SSE `data:` frames in upstreamDialect, decodes each
// to urp.StreamEvent, runs the response-phase transform pipeline
// (threading the same states across the whole stream, per spec.md
// §4.2.2 step 4), re-encodes into clientDialect, and writes SSE frames
// to w — one event ahead of the client sink at most, matching §4.4's
// cooperative-backpressure requirement (each decoded upstream frame is
// fully transformed, encoded, and flushed before the next scan.Scan()
// call pulls the next upstream line). Returns the first error
// encountered; a malformed upstream frame is reported as a single
// Error event followed by a return, never a panic or partial write.
func Pump(ctx context.Context, w http.ResponseWriter, upstreamResp *http.Response, upstreamDialect, clientDialect routing.Dialect, rules []transform.Rule, states []transform.State, currentModel string, reg *transform.Registry, responseID, responseModel string) error {
	upAdapter, ok := Adapters[upstreamDialect]
	if !ok {
		return fmt.Errorf("streaming: no adapter for upstream dialect %q", upstreamDialect)
	}
	clientAdapter, ok := Adapters[clientDialect]
	if !ok {
		return fmt.Errorf("streaming: no adapter for client dialect %q", clientDialect)
	}

	body, err := decompressReader(upstreamResp)
	if err != nil {
		return err
	}
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	decodeState := upAdapter.NewDecodeState()
	encodeState := clientAdapter.NewEncodeState()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	emit := func(events []urp.StreamEvent) error {
		for _, ev := range events {
			transformed, err := transform.ApplyStreamEvent(ev, rules, states, currentModel, reg)
			if err != nil {
				return err
			}
			for _, te := range transformed {
				for _, frame := range encodeState.EncodeStreamEvent(te, responseID, responseModel) {
					if err := writeEvent(w, clientAdapter.NamedEvents, frame); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if line == "data: [DONE]" {
			fmt.Fprint(w, "data: [DONE]\n\n")
			flush(w)
			return nil
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			msg := err.Error()
			_ = emit([]urp.StreamEvent{urp.Error{Message: "malformed upstream frame: " + msg, ExtraBody: urp.ExtraBody{}}})
			return err
		}

		events := decodeState.DecodeStreamChunk(raw)
		if err := emit(events); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		_ = emit([]urp.StreamEvent{urp.Error{Message: "stream read error: " + err.Error(), ExtraBody: urp.ExtraBody{}}})
		return err
	}
	return nil
}
