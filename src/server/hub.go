package server

import (
	"context"
	"encoding/json"
	"net/http"

	"nifty-dashboard/src/dashboard"
	"nifty-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// sessionMessage is routed by the hub to the clients of one session, or to a
// single client when client is set.
type sessionMessage struct {
	sessionID string
	client    *Client
	update    *models.MSessionUpdate
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.detach(client)
			}
			return

		case client := <-s.register:
			s.attach(client)
			if state, ok := s.Sessions.Get(client.sessionID); ok {
				client.send <- snapshot(state, "INITIAL")
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.detach(client)
			}

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestUpdate = message.update.Timestamp
			s.stateMutex.Unlock()

			for client := range s.clients {
				if message.client != nil && client != message.client {
					continue
				}
				if client.sessionID != message.sessionID {
					continue
				}
				select {
				case client.send <- message.update:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.detach(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// attach and detach run on the hub goroutine only.
func (s *APIServer) attach(client *Client) {
	s.clients[client] = struct{}{}

	s.stateMutex.Lock()
	s.subscribers[client.sessionID]++
	s.connections = len(s.clients)
	s.stateMutex.Unlock()
}

func (s *APIServer) detach(client *Client) {
	delete(s.clients, client)
	close(client.send)

	s.stateMutex.Lock()
	if s.subscribers[client.sessionID]--; s.subscribers[client.sessionID] <= 0 {
		delete(s.subscribers, client.sessionID)
	}
	s.connections = len(s.clients)
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

func (s *APIServer) subscribed(sessionID string) bool {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.subscribers[sessionID] > 0
}

// -----------------------------------------------------------------------------
// Outbound Messages
// -----------------------------------------------------------------------------

// Broadcast queues an update for every client of the session.
func (s *APIServer) Broadcast(sessionID string, update *models.MSessionUpdate) {
	s.enqueue(&sessionMessage{sessionID: sessionID, update: update})
}

// -----------------------------------------------------------------------------

func (s *APIServer) reply(client *Client, update *models.MSessionUpdate) {
	s.enqueue(&sessionMessage{sessionID: client.sessionID, client: client, update: update})
}

// -----------------------------------------------------------------------------

func (s *APIServer) enqueue(message *sessionMessage) {
	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------

// pushOutputs publishes the session outputs when a client is listening.
func (s *APIServer) pushOutputs(state *dashboard.DashboardState) {
	if !s.subscribed(state.ID) {
		return
	}
	s.publish(state)
}

// -----------------------------------------------------------------------------

// publish recomputes and broadcasts the outputs. Stale or overtaken results
// are dropped inside Publish, so subscribers see pushes in input order.
func (s *APIServer) publish(state *dashboard.DashboardState) {
	ctx, cancel := context.WithTimeout(context.Background(), s.RefreshTimeout)
	defer cancel()

	state.Publish(ctx, func(outputs []models.MOutput, err error) {
		if err != nil {
			s.Logger.Warning("Session %s: refresh failed: %v", state.ID, err)
			s.Broadcast(state.ID, failure(state, err))
			return
		}
		s.Broadcast(state.ID, outputsUpdate(state.ID, outputs))
	})
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin)
		},
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	sessionID := c.Query("session")
	if _, ok := s.Sessions.Get(sessionID); !ok {
		c.JSON(http.StatusNotFound, errorBody("unknown session"))
		return
	}

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:       s,
		conn:      conn,
		sessionID: sessionID,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MSessionUpdate, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	state, ok := s.Sessions.Get(client.sessionID)
	if !ok {
		s.Logger.Info("Session %s is gone, disconnecting client", client.sessionID)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "set_input":
		if err := state.SetInput(cmd.Input, cmd.Value); err != nil {
			s.reply(client, failure(state, err))
			return
		}
	case "refresh":
	default:
		s.reply(client, failure(state, errUnknownCommand(cmd.Command)))
		return
	}

	// Refresh off the read loop so pongs keep being processed
	go s.publish(state)
}

// -----------------------------------------------------------------------------

type errUnknownCommand string

func (e errUnknownCommand) Error() string {
	return "unknown command " + string(e)
}
