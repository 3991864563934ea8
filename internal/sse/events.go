// Package sse implements Server-Sent Events for pushing row changes to subscribed clients.
package sse

import (
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
)

// Clients subscribe to tables rather than to individual rows and recompute
// derived state (invitation validity, license expiry) themselves on receipt.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRowChanged represents an insert, update or delete on a subscribed table.
	EventRowChanged EventType = "row.changed"
	// EventNotificationCreated represents a new notification for the receiving user.
	EventNotificationCreated EventType = "notification.created"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Table names a change-feed channel. Values match the SQL table names.
type Table string

const (
	TableProfiles      Table = "profiles"
	TableInvitations   Table = "agent_invitations"
	TableAgencyAgents  Table = "agency_agents"
	TableContracts     Table = "collaboration_contracts"
	TableVisibility    Table = "property_visibility"
	TableGrants        Table = "shared_property_grants"
	TableNotifications Table = "notifications"
)

// ParseTable validates a table name supplied by a subscriber.
func ParseTable(s string) (Table, bool) {
	switch t := Table(s); t {
	case TableProfiles, TableInvitations, TableAgencyAgents, TableContracts,
		TableVisibility, TableGrants, TableNotifications:
		return t, true
	default:
		return "", false
	}
}

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	Table     Table     `json:"table,omitempty"`
	Op        Op        `json:"op,omitempty"`

	// Tenant filters. A client receives the event when it matches either one.
	// Both empty means the event goes to every client (heartbeats).
	AgencyID string `json:"-"`
	UserID   string `json:"-"`
}

// RowEventData is the data payload for row change events.
// Row is the written record; Key identifies deleted rows.
type RowEventData struct {
	Row any               `json:"row,omitempty"`
	Key map[string]string `json:"key,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRowEvent creates a change event for a written row.
func NewRowEvent(table Table, op Op, row any, agencyID, userID string) Event {
	return Event{
		Type:      EventRowChanged,
		Table:     table,
		Op:        op,
		Data:      RowEventData{Row: row},
		AgencyID:  agencyID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// NewDeleteEvent creates a change event for a deleted row identified by key.
func NewDeleteEvent(table Table, key map[string]string, agencyID, userID string) Event {
	return Event{
		Type:      EventRowChanged,
		Table:     table,
		Op:        OpDelete,
		Data:      RowEventData{Key: key},
		AgencyID:  agencyID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// NewNotificationCreatedEvent creates an event addressed to the notification's recipient.
func NewNotificationCreatedEvent(n *domain.Notification) Event {
	return Event{
		Type:      EventNotificationCreated,
		Table:     TableNotifications,
		Op:        OpInsert,
		Data:      RowEventData{Row: n},
		UserID:    n.RecipientID,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
