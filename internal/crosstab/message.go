// Package crosstab keeps auth, credit, and logout state consistent across
// multiple running instances of the same session (browser tabs in the
// original product) through a fire-and-forget broadcast channel.
//
// Messages are hints, not truth: receivers reconcile by re-querying the
// backend, never by applying message payloads directly. A lost message only
// delays reconciliation until the next authoritative fetch.
package crosstab

import "time"

// MessageType enumerates the broadcast notification kinds.
type MessageType string

const (
	MessageAuthUpdate     MessageType = "auth_update"
	MessageCreditsUpdate  MessageType = "credits_update"
	MessageSessionExpired MessageType = "session_expired"
	MessageUserLogout     MessageType = "user_logout"
)

// StaleAfter is the age past which inbound messages are ignored.
const StaleAfter = 5 * time.Second

// Message is one broadcast notification. Origin carries the sender's locally
// generated instance id so receivers can discard their own echoes without
// relying on transport semantics.
type Message struct {
	Type      MessageType    `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Origin    string         `json:"origin"`
}
