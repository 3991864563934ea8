package domain

import "time"

// NotificationKind identifies which state transition produced a notification.
type NotificationKind string

const (
	NotificationInvitationReceived NotificationKind = "invitation.received"
	NotificationInvitationAccepted NotificationKind = "invitation.accepted"
	NotificationInvitationDeclined NotificationKind = "invitation.declined"
	NotificationContractRequested  NotificationKind = "contract.requested"
	NotificationContractApproved   NotificationKind = "contract.approved"
	NotificationContractRejected   NotificationKind = "contract.rejected"
	NotificationContractRenewed    NotificationKind = "contract.renewed"
	NotificationPropertyShared     NotificationKind = "property.shared"
)

// Notification is a recipient-addressed message created on a state transition.
// Delivery and read state belong to the relay, not to this service.
//
// DedupeKey makes creation idempotent: a second notification with the same key is ignored,
// so a retried saga step never notifies twice.
type Notification struct {
	CreatedAt   time.Time         `json:"created_at"`
	Payload     map[string]string `json:"payload,omitempty"`
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Kind        NotificationKind  `json:"kind"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	DedupeKey   string            `json:"-"`
}
