package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// refreshState tracks an in-flight pipeline run and its SSE subscribers.
type refreshState struct {
	mu        sync.RWMutex
	isRunning bool
	completed int
	total     int
	clients   []chan ProgressEvent
}

// ProgressEvent represents a progress update event
type ProgressEvent struct {
	Type string      `json:"type"` // "progress", "complete", "error"
	Data interface{} `json:"data"`
}

func newRefreshState() *refreshState {
	return &refreshState{
		clients: make([]chan ProgressEvent, 0),
	}
}

// Refresh triggers a new pipeline run in the background. Only one run
// may be in flight at a time.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	rs := h.refresh

	rs.mu.Lock()
	if rs.isRunning {
		rs.mu.Unlock()
		http.Error(w, "Refresh already in progress", http.StatusConflict)
		return
	}
	rs.isRunning = true
	rs.completed = 0
	rs.total = 0
	rs.mu.Unlock()

	go func() {
		defer func() {
			rs.mu.Lock()
			rs.isRunning = false
			rs.mu.Unlock()
		}()

		snap, err := h.RunPipeline(context.Background(), func(completed, total int) {
			rs.mu.Lock()
			rs.completed = completed
			rs.total = total
			rs.mu.Unlock()

			rs.broadcast(ProgressEvent{
				Type: "progress",
				Data: map[string]int{"completed": completed, "total": total},
			})
		})
		if err != nil {
			h.logger.Error("refresh failed", zap.Error(err))
			rs.broadcast(ProgressEvent{
				Type: "error",
				Data: map[string]string{"error": err.Error()},
			})
			return
		}

		rs.broadcast(ProgressEvent{
			Type: "complete",
			Data: map[string]int{
				"keys":            snap.TotalKeys,
				"parsed":          snap.TotalMessages,
				"attachments":     snap.TotalAttachments,
				"max_attachments": snap.MaxAttachments,
			},
		})
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "Refresh started")
}

// RefreshProgressSSE streams pipeline progress as Server-Sent Events.
func (h *Handlers) RefreshProgressSSE(w http.ResponseWriter, r *http.Request) {
	rs := h.refresh

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan ProgressEvent, 10)

	rs.mu.Lock()
	rs.clients = append(rs.clients, clientChan)

	// Send the current position if a run is already in flight.
	if rs.isRunning {
		h.sendSSE(w, flusher, "progress", map[string]int{
			"completed": rs.completed,
			"total":     rs.total,
		})
	}
	rs.mu.Unlock()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnected, clean up
			rs.mu.Lock()
			for i, ch := range rs.clients {
				if ch == clientChan {
					rs.clients = append(rs.clients[:i], rs.clients[i+1:]...)
					break
				}
			}
			rs.mu.Unlock()
			close(clientChan)
			return

		case event := <-clientChan:
			h.sendSSE(w, flusher, event.Type, event.Data)

			// Close connection after complete or error
			if event.Type == "complete" || event.Type == "error" {
				return
			}
		}
	}
}

// broadcast sends an event to all connected SSE clients without blocking
// on slow ones.
func (rs *refreshState) broadcast(event ProgressEvent) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, client := range rs.clients {
		select {
		case client <- event:
		default:
			// Client channel full, skip
		}
	}
}

// sendSSE sends an SSE message to the client
func (h *Handlers) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal SSE data", zap.Error(err))
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
