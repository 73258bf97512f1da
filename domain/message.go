package domain

import (
	"encoding/json"
	"time"
)

// MessageType names a frame on the shared channel.
type MessageType string

const (
	// Client -> upstream control frames.
	MessageTypeRegistration   MessageType = "registration"
	MessageTypeDeregistration MessageType = "deregistration"

	// Upstream -> client informational frame.
	MessageTypeDisconnect MessageType = "disconnect"

	// Upstream -> client event frames, fanned out to every channel peer.
	EventMessageCreate         MessageType = "messageCreate"
	EventGuildMemberAdd        MessageType = "guildMemberAdd"
	EventGuildMemberRemove     MessageType = "guildMemberRemove"
	EventGuildMemberUpdate     MessageType = "guildMemberUpdate"
	EventMessageReactionAdd    MessageType = "messageReactionAdd"
	EventMessageReactionRemove MessageType = "messageReactionRemove"
	EventRoleCreate            MessageType = "roleCreate"
	EventRoleDelete            MessageType = "roleDelete"
	EventRoleUpdate            MessageType = "roleUpdate"
)

// EventKinds lists every inbound event frame a bound identity listens for.
var EventKinds = []MessageType{
	EventMessageCreate,
	EventGuildMemberAdd,
	EventGuildMemberRemove,
	EventGuildMemberUpdate,
	EventMessageReactionAdd,
	EventMessageReactionRemove,
	EventRoleCreate,
	EventRoleDelete,
	EventRoleUpdate,
}

// Message is the envelope for every frame exchanged over the channel.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
