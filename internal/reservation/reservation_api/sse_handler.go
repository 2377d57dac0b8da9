package reservation_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/sse"
)

// SSEHandler streams reservation changes to back-office dashboards.
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.ReservationEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.ReservationEventEmitter) *SSEHandler {
	return &SSEHandler{Logger: log, EventEmitter: emitter}
}

// HandleReservationStream streams changes for ?eventId=, or for every event when it is omitted.
func (h *SSEHandler) HandleReservationStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	eventID := r.URL.Query().Get("eventId")
	h.setupSSEHeaders(w)

	// Subscription ends when the client disconnects
	ctx := r.Context()
	eventChan := h.EventEmitter.Subscribe(ctx, eventID)

	connected, _ := json.Marshal(map[string]string{"status": "connected", "eventId": eventID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to reservation stream (event=%q)", eventID))

	for {
		select {
		case evt, ok := <-eventChan:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize reservation event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from reservation stream (event=%q)", eventID))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
