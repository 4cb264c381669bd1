package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
	"github.com/lmendia/DevHouseTycoon/internal/platform/metrics"
	"github.com/lmendia/DevHouseTycoon/internal/sim"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex

	simulation *sim.Simulation
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub bound to the simulation.
func NewHub(s *sim.Simulation, log *logger.Logger, m *metrics.Collector) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		simulation: s,
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage()
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent serializes a StudioEvent to JSON and sends it to all
// connected clients.
func (h *Hub) BroadcastEvent(event events.StudioEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize StudioEvent for WebSocket broadcast: " + err.Error())
		return
	}
	h.broadcast <- payload
}

// Notify implements sim.Notifier: player-facing messages ride the same
// socket as ledger events, wrapped in a NOTIFICATION envelope.
func (h *Hub) Notify(message string) {
	payload, err := json.Marshal(map[string]string{
		"type":    "NOTIFICATION",
		"message": message,
	})
	if err != nil {
		return
	}
	h.broadcast <- payload
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes
// new events to the Hub. This lets the Hub run independently from the tick
// loop while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.Log) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		lastProcessed := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				fresh := eventLog.Since(lastProcessed)
				for _, event := range fresh {
					h.BroadcastEvent(event)
				}
				lastProcessed += len(fresh)
			}
		}
	}()
}
