package router

import (
	"context"
	"encoding/json"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
	"github.com/botmux/botmux/pkg/errors"
)

// Router builds the event handler sets that route inbound events to client
// sinks. One handler set is attached per identity when the identity first
// binds, and every set sees every inbound event: each handler filters on
// the event's target identity and drops everything addressed elsewhere.
type Router struct {
	logger *logging.Logger
}

func New(logger *logging.Logger) *Router {
	return &Router{
		logger: logger,
	}
}

// Handlers returns the full handler set for one identity. The binder
// subscribes every entry on the channel exactly once per identity per
// channel lifetime; attaching the set twice would double every delivery.
func (r *Router) Handlers(id domain.ClientID, parameters map[string]any, sink domain.Sink) map[domain.MessageType]domain.EventHandler {
	r.logger.Debug("building handler set", "client_id", id)

	return map[domain.MessageType]domain.EventHandler{
		domain.EventMessageCreate:         r.messageCreate(id, parameters, sink),
		domain.EventGuildMemberAdd:        r.guildMember(id, sink),
		domain.EventGuildMemberRemove:     r.guildMember(id, sink),
		domain.EventGuildMemberUpdate:     r.guildMemberUpdate(id, sink),
		domain.EventMessageReactionAdd:    r.reaction(id, sink),
		domain.EventMessageReactionRemove: r.reaction(id, sink),
		domain.EventRoleCreate:            r.role(id, sink),
		domain.EventRoleDelete:            r.role(id, sink),
		domain.EventRoleUpdate:            r.roleUpdate(id, sink),
	}
}

func (r *Router) messageCreate(id domain.ClientID, parameters map[string]any, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.MessageCreatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal messageCreate")
		}
		if payload.TargetID != id {
			return nil
		}
		return r.deliver(ctx, sink, NormalizeMessageCreate(&payload, parameters))
	}
}

func (r *Router) guildMember(id domain.ClientID, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.GuildMemberPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal member event")
		}
		if payload.TargetID != id {
			return nil
		}
		// Member records pass through unchanged.
		return r.deliver(ctx, sink, cloneRecord(payload.Member))
	}
}

func (r *Router) guildMemberUpdate(id domain.ClientID, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.GuildMemberUpdatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal guildMemberUpdate")
		}
		if payload.TargetID != id {
			return nil
		}
		return r.deliver(ctx, sink, NormalizeGuildMemberUpdate(&payload))
	}
}

func (r *Router) reaction(id domain.ClientID, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.ReactionPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal reaction event")
		}
		if payload.TargetID != id {
			return nil
		}
		return r.deliver(ctx, sink, NormalizeReaction(&payload))
	}
}

func (r *Router) role(id domain.ClientID, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.RolePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal role event")
		}
		if payload.TargetID != id {
			return nil
		}
		// Role records pass through unchanged.
		return r.deliver(ctx, sink, cloneRecord(payload.Role))
	}
}

func (r *Router) roleUpdate(id domain.ClientID, sink domain.Sink) domain.EventHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var payload domain.RoleUpdatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRouting, "INVALID_EVENT", "failed to unmarshal roleUpdate")
		}
		if payload.TargetID != id {
			return nil
		}
		return r.deliver(ctx, sink, NormalizeRoleUpdate(&payload))
	}
}

// deliver emits one normalized record as a single-item batch.
func (r *Router) deliver(ctx context.Context, sink domain.Sink, record domain.Record) error {
	if err := sink.Emit(ctx, []domain.Record{record}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRouting, "SINK_ERROR", "sink rejected event batch")
	}
	return nil
}
