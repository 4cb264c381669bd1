package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Minimum spacing between actions from a single client.
	actionCooldown = 250 * time.Millisecond
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type     string          `json:"type"`      // "ACCEPT_CONTRACT", "COMMIT_STORY", etc.
	TargetID string          `json:"target_id"` // Story, blocker, or candidate ID
	Payload  json.RawMessage `json:"payload"`   // Action-specific data
}

// Client holds one WebSocket connection. The Hub ref allows unregister.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection into the simulation.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error: " + err.Error())
				c.hub.metrics.RecordWSError()
			}
			break
		}

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Error("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	if time.Since(c.lastActionTime) < actionCooldown {
		c.hub.logger.Warn("Rate limit exceeded for client action " + action.Type)
		return
	}
	c.lastActionTime = time.Now()

	s := c.hub.simulation
	ok := false
	switch action.Type {
	case "ACCEPT_CONTRACT":
		_, ok = s.AcceptContract()
	case "COMMIT_STORY":
		ok = s.CommitStory(action.TargetID)
	case "UNCOMMIT_STORY":
		ok = s.UncommitStory(action.TargetID)
	case "DISMISS_BLOCKER":
		ok = s.DismissBlocker(action.TargetID)
	case "SHIP_EARLY":
		_, ok = s.ShipEarly()
	case "COLLECT_PAYOUT":
		ok = s.CollectPayout()
	case "ROLL_CANDIDATES":
		ok = len(s.RollCandidates()) > 0
	case "HIRE_CANDIDATE":
		ok = s.HireCandidate(action.TargetID)
	default:
		c.hub.logger.Warn("Unknown PlayerAction type: " + action.Type)
		return
	}

	if !ok {
		c.hub.logger.Warn("Rejected PlayerAction " + action.Type + " (illegal in current phase or unknown target)")
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
