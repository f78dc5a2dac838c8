package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wipeguard/wipeguard/internal/events"
)

// StreamEvents pushes job lifecycle events to the caller over server-sent
// events. The optional channel query parameter narrows the stream to a single
// job channel; without it the subscriber receives every event. Delivery is
// best effort: a consumer that cannot keep up is disconnected rather than
// allowed to stall the publisher.
//
// (GET /api/v1/events)
func (s *ServiceHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		replyError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	channel := r.URL.Query().Get("channel")
	if raw := r.URL.Query().Get("jobId"); raw != "" {
		jobID, err := uuid.Parse(raw)
		if err != nil {
			replyError(w, r, http.StatusBadRequest, "invalid jobId")
			return
		}
		channel = events.JobChannel(jobID)
	}

	sub := s.broadcaster.Subscribe(channel)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := zap.S().Named("handlers")
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				// dropped as a slow consumer
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Errorw("failed to marshal job event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
