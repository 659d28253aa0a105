package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/niftybulk/papertrade/internal/modules/portfolio"
)

// heartbeatInterval keeps idle SSE connections open through proxies
var heartbeatInterval = 30 * time.Second

// HandleStream handles GET /api/portfolio/stream (SSE). The connection owns
// one price subscription and receives a valuation after every tick.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Only the latest valuation matters; a slow client skips stale ones
	updates := make(chan portfolio.Summary, 1)
	stop := h.service.Watch(func(s portfolio.Summary) {
		select {
		case <-updates:
		default:
		}
		updates <- s
	})
	defer stop()

	h.log.Debug().Msg("Client connected to portfolio stream")
	h.send(w, flusher, "snapshot", h.service.Current())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug().Msg("Client disconnected from portfolio stream")
			return
		case s := <-updates:
			h.send(w, flusher, "valuation", s)
		case <-heartbeat.C:
			h.send(w, flusher, "heartbeat", nil)
		}
	}
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, kind string, summary interface{}) {
	frame := map[string]interface{}{
		"type":      kind,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if summary != nil {
		frame["data"] = summary
	}
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal portfolio frame")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
