// Package websocket maintains the set of connected subscribers and fans note
// change events out to them. Delivery is advisory: slow or broken clients are
// dropped, never waited on.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"notevault-server/internal/domain"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Manager struct {
	clients        map[string]*Client
	userIndex      map[int64]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         *slog.Logger
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[int64]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		logger:         logger,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", slog.Int64("user_id", client.UserID))
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Debug("client registered",
		slog.String("client_id", client.ID),
		slog.Int64("user_id", client.UserID),
	)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		close(client.Send)
		m.logger.Debug("client unregistered", slog.String("client_id", client.ID))
	}
}

// processMessage answers subscriber pings; anything else is ignored, the
// channel is publish-only from the server's point of view.
func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Debug("dropping malformed message", slog.String("error", err.Error()))
		return
	}

	if msg.Type != TypePing {
		return
	}

	pong, err := NewMessage(TypePong, nil)
	if err != nil {
		return
	}
	pongBytes, _ := json.Marshal(pong)

	select {
	case clientMsg.Client.Send <- pongBytes:
	default:
	}
}

// PublishChange broadcasts a committed note change to every connected
// subscriber. Clients with a full send buffer are disconnected rather than
// blocked on.
func (m *Manager) PublishChange(event *domain.ChangeEvent) error {
	msg, err := NewMessage(TypeChange, event)
	if err != nil {
		return err
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for clientID, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Warn("send buffer full, dropping client", slog.String("client_id", clientID))
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}

	return nil
}

func (m *Manager) UserConnections(userID int64) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.userIndex[userID])
}
