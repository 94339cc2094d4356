package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"punchlab/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

// BroadcastJSON marshals data and broadcasts it. Marshal failures are logged
// and dropped; SSE is best-effort.
func (h *EventHub) BroadcastJSON(event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(b))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts. The browser
// drives the four-stage progress view and the redirect countdown entirely
// from these events.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ExecutionStartedEvent)
		h.BroadcastJSON("execution-update", map[string]any{
			"type":         "started",
			"execution_id": ev.ExecutionID,
			"environment":  ev.Environment,
			"customer_id":  ev.CustomerID,
		})
	}, engine.EventExecutionStarted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.StageChangedEvent)
		h.BroadcastJSON("execution-update", map[string]any{
			"type":         "stage",
			"execution_id": ev.ExecutionID,
			"session_key":  ev.SessionKey,
			"stage":        ev.Stage,
			"status":       ev.Status,
		})
	}, engine.EventStageChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.AttemptFinishedEvent)
		h.BroadcastJSON("execution-update", map[string]any{
			"type":          "finished",
			"execution_id":  ev.ExecutionID,
			"success":       ev.Success,
			"failure":       ev.Failure,
			"error_message": ev.ErrorMessage,
			"session_key":   ev.SessionKey,
			"http_status":   ev.HTTPStatus,
			"catalog_url":   ev.CatalogURL,
			"stages":        ev.Stages,
		})
	}, engine.EventAttemptFinished)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.CountdownTickEvent)
		h.BroadcastJSON("redirect-update", map[string]any{
			"type":         "tick",
			"execution_id": ev.ExecutionID,
			"seconds_left": ev.SecondsLeft,
		})
	}, engine.EventCountdownTick)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.RedirectPerformedEvent)
		h.BroadcastJSON("redirect-update", map[string]any{
			"type":         "navigate",
			"execution_id": ev.ExecutionID,
			"url":          ev.URL,
			"new_tab":      ev.NewTab,
		})
	}, engine.EventRedirectPerformed)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.RedirectCancelledEvent)
		h.BroadcastJSON("redirect-update", map[string]any{
			"type":         "cancelled",
			"execution_id": ev.ExecutionID,
		})
	}, engine.EventRedirectCancelled)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
