// Package events fans run lifecycle events out to Server-Sent Events clients.
package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Event types.
const (
	RunStarted    = "run_started"
	RunFinished   = "run_finished"
	SuiteFinished = "suite_finished"
	SiteUpdated   = "site_updated"
)

// clientBuffer is how many undelivered messages a slow client may queue
// before further events are dropped for it.
const clientBuffer = 16

// Publisher is the sending side of a broker.
type Publisher interface {
	Broadcast(eventType string, data any)
}

// Nop discards events.
type Nop struct{}

// Broadcast implements Publisher.
func (Nop) Broadcast(string, any) {}

// Broker manages SSE connections and broadcasts events
type Broker struct {
	clients map[chan string]struct{}
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewBroker returns an empty broker.
func NewBroker(logger zerolog.Logger) *Broker {
	return &Broker{
		clients: make(map[chan string]struct{}),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a new client and returns its channel.
func (b *Broker) Subscribe() chan string {
	client := make(chan string, clientBuffer)
	b.mu.Lock()
	b.clients[client] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	b.logger.Debug().Int("clients", n).Msg("sse client connected")
	return client
}

// Unsubscribe removes a client and closes its channel. Unknown channels are ignored.
func (b *Broker) Unsubscribe(client chan string) {
	b.mu.Lock()
	_, ok := b.clients[client]
	if ok {
		delete(b.clients, client)
		close(client)
	}
	n := len(b.clients)
	b.mu.Unlock()
	if ok {
		b.logger.Debug().Int("clients", n).Msg("sse client disconnected")
	}
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all connected clients without blocking. A
// client whose buffer is full misses the event.
func (b *Broker) Broadcast(eventType string, data any) {
	message, err := Format(eventType, data)
	if err != nil {
		b.logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for client := range b.clients {
		select {
		case client <- message:
		default:
			dropped++
		}
	}

	b.logger.Debug().Str("event", eventType).Int("clients", len(b.clients)).Int("dropped", dropped).Msg("broadcast event")
}

// Format renders one SSE message.
func Format(eventType string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, jsonData), nil
}
