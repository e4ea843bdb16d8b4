package ingress

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/monoize-go/monoize/internal/routing"
)

// HealthHandler answers /health with the registry's per-channel status
// snapshot, grounded on spec.md §5's "channel health is observable" and
// the teacher's server.go health route, generalized from a static "ok"
// body into the live routing.Channel.Status view.
type HealthHandler struct {
	Registry *routing.Registry
}

func NewHealthHandler(registry *routing.Registry) *HealthHandler {
	return &HealthHandler{Registry: registry}
}

type channelHealthView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type providerHealthView struct {
	ID       string              `json:"id"`
	Enabled  bool                `json:"enabled"`
	Channels []channelHealthView `json:"channels"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	providers := h.Registry.Providers()
	out := make([]providerHealthView, 0, len(providers))
	for _, p := range providers {
		channels := make([]channelHealthView, 0, len(p.Channels))
		for _, c := range p.Channels {
			channels = append(channels, channelHealthView{
				ID:     c.ID,
				Name:   c.Name,
				Status: c.Snapshot().Status(now),
			})
		}
		out = append(out, providerHealthView{ID: p.ID, Enabled: p.Enabled, Channels: channels})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "providers": out})
}
