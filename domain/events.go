package domain

// Inbound event payloads. Upstream object schemas are open, so object
// fields are kept as maps; only the routing metadata is typed.

// MessageCreatePayload carries a new chat message for one target identity.
type MessageCreatePayload struct {
	TargetID    ClientID         `json:"targetId"`
	Message     map[string]any   `json:"message"`
	Author      map[string]any   `json:"author"`
	Guild       map[string]any   `json:"guild"`
	Reference   map[string]any   `json:"reference,omitempty"`
	Attachments []map[string]any `json:"attachments,omitempty"`
}

// GuildMemberPayload carries a member join or leave.
type GuildMemberPayload struct {
	TargetID ClientID       `json:"targetId"`
	Member   map[string]any `json:"member"`
}

// GuildMemberUpdatePayload carries the before/after state of a member change.
type GuildMemberUpdatePayload struct {
	TargetID ClientID       `json:"targetId"`
	Old      map[string]any `json:"old"`
	New      map[string]any `json:"new"`
	Guild    map[string]any `json:"guild"`
}

// ReactionPayload carries a reaction added to or removed from a message.
type ReactionPayload struct {
	TargetID  ClientID       `json:"targetId"`
	Reaction  map[string]any `json:"reaction"`
	User      map[string]any `json:"user"`
	ChannelID string         `json:"channelId"`
	GuildID   string         `json:"guildId"`
}

// RolePayload carries a role creation or deletion.
type RolePayload struct {
	TargetID ClientID       `json:"targetId"`
	Role     map[string]any `json:"role"`
}

// RoleUpdatePayload carries the before/after state of a role change.
type RoleUpdatePayload struct {
	TargetID ClientID       `json:"targetId"`
	Old      map[string]any `json:"old"`
	New      map[string]any `json:"new"`
}

// DisconnectPayload is the informational frame upstream sends before it
// drops the channel.
type DisconnectPayload struct {
	Reason string `json:"reason,omitempty"`
}
