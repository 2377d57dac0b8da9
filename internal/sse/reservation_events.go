package sse

import (
	"context"
	"sync"

	"ms-reservations/internal/models"
)

const clientBuffer = 16

// ReservationEventEmitter fans reservation changes out to connected SSE clients,
// either for one event or for all events.
type ReservationEventEmitter struct {
	mu           sync.RWMutex
	allClients   []chan models.ReservationEvent
	eventClients map[string][]chan models.ReservationEvent
}

func NewReservationEventEmitter() *ReservationEventEmitter {
	return &ReservationEventEmitter{
		eventClients: make(map[string][]chan models.ReservationEvent),
	}
}

// Subscribe registers a client for eventID, or for every event when eventID is
// empty. The channel is closed once ctx is done.
func (e *ReservationEventEmitter) Subscribe(ctx context.Context, eventID string) <-chan models.ReservationEvent {
	clientChan := make(chan models.ReservationEvent, clientBuffer)

	e.mu.Lock()
	if eventID == "" {
		e.allClients = append(e.allClients, clientChan)
	} else {
		e.eventClients[eventID] = append(e.eventClients[eventID], clientChan)
	}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, clientChan)
	}()

	return clientChan
}

// Emit never blocks: a client whose buffer is full misses the message.
// Sends happen under the read lock so remove cannot close a channel mid-send.
func (e *ReservationEventEmitter) Emit(evt models.ReservationEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.eventClients[evt.EventID] {
		select {
		case ch <- evt:
		default:
		}
	}
	for _, ch := range e.allClients {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (e *ReservationEventEmitter) remove(eventID string, clientChan chan models.ReservationEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if eventID == "" {
		e.allClients = removeChan(e.allClients, clientChan)
	} else {
		e.eventClients[eventID] = removeChan(e.eventClients[eventID], clientChan)
		if len(e.eventClients[eventID]) == 0 {
			delete(e.eventClients, eventID)
		}
	}
	close(clientChan)
}

func removeChan(clients []chan models.ReservationEvent, target chan models.ReservationEvent) []chan models.ReservationEvent {
	for i, ch := range clients {
		if ch == target {
			return append(clients[:i], clients[i+1:]...)
		}
	}
	return clients
}

// ClientCount returns the subscribers for eventID, or the all-events subscribers when empty.
func (e *ReservationEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if eventID == "" {
		return len(e.allClients)
	}
	return len(e.eventClients[eventID])
}
