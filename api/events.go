package api

import (
	"fmt"
	"net/http"

	"qapages/events"
)

// SSEHandler handles Server-Sent Events connections
func SSEHandler(broker *events.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		client := broker.Subscribe()
		defer broker.Unsubscribe(client)

		fmt.Fprintf(w, "event: connected\ndata: {\"message\": \"Connected to qapages events\"}\n\n")
		flusher.Flush()

		for {
			select {
			case message, open := <-client:
				if !open {
					return
				}
				fmt.Fprint(w, message)
				flusher.Flush()
			case <-r.Context().Done():
				// Client disconnected
				return
			}
		}
	}
}
