package sse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Subscription selects which events a client receives.
// Empty Tables means every table. AgencyID and UserID are the tenant filters:
// a row event is delivered when it is scoped to the client's agency or to the client's user.
type Subscription struct {
	Tables   map[Table]bool
	AgencyID string
	UserID   string
}

// Matches reports whether event should be delivered under this subscription.
func (s Subscription) Matches(event Event) bool {
	if event.Type == EventHeartbeat {
		return true
	}
	if len(s.Tables) > 0 && !s.Tables[event.Table] {
		return false
	}
	if event.AgencyID == "" && event.UserID == "" {
		return true
	}
	if event.AgencyID != "" && s.AgencyID != "" && event.AgencyID == s.AgencyID {
		return true
	}
	return event.UserID != "" && s.UserID != "" && event.UserID == s.UserID
}

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt  time.Time
	EventChan    chan Event
	Done         chan struct{}
	ID           string
	Subscription Subscription
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeartbeat sets how often an idle stream receives a heartbeat frame.
func WithHeartbeat(interval time.Duration) Option {
	return func(m *Manager) { m.heartbeatInterval = interval }
}

// WithBuffers sets the shared queue size and the per-client queue size.
func WithBuffers(queue, perClient int) Option {
	return func(m *Manager) {
		m.queueSize = queue
		m.clientBuffer = perClient
	}
}

// Manager fans row events out to subscribed clients.
// Delivery is best effort: a full client queue drops the event for that client only.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	queueSize         int
	clientBuffer      int
	dropped           atomic.Int64
	mu                sync.RWMutex

	// shutdownMu guards shutdown and the close of events.
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		clients:           make(map[string]*Client),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		queueSize:         1000,
		clientBuffer:      100,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = make(chan Event, m.queueSize)
	return m
}

// Start runs the broadcast loop until ctx is done. Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is queued, and closes every client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE events drained successfully")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
	}

	m.wg.Wait()
	m.closeAllClients()

	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// broadcast sends an event to connected clients whose subscription matches.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.Subscription.Matches(event) {
			filtered++
			continue
		}

		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.dropped.Add(1)
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)),
				slog.String("table", string(event.Table)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.String("table", string(event.Table)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a new SSE client with the given subscription.
func (m *Manager) Connect(sub Subscription) (*Client, error) {
	clientID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:           clientID.String(),
		Subscription: sub,
		EventChan:    make(chan Event, m.clientBuffer),
		Done:         make(chan struct{}),
		ConnectedAt:  time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", client.ID),
		slog.String("user_id", sub.UserID),
		slog.String("agency_id", sub.AgencyID),
		slog.Int("tables", len(sub.Tables)),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for broadcasting. It implements store.EventEmitter and never blocks.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("invalid event type emitted",
			slog.String("type", "unknown"))
		return
	}

	// Held across the send so Shutdown cannot close events underneath it.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.dropped.Add(1)
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(evt.Type)),
			slog.String("table", string(evt.Table)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Dropped returns how many events were discarded because a queue was full.
func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client)

	m.logger.Info("all SSE clients disconnected")
}
