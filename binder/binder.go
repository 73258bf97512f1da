package binder

import (
	"context"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/internal/eventbus"
	"github.com/botmux/botmux/logging"
	"github.com/botmux/botmux/router"
)

// Binder layers client activation lifecycles on top of the shared channel.
// Event listeners on the channel are permanent for its lifetime, so the
// binder consults the session registry on every activation and attaches
// the router handler set only the first time an identity binds. Every
// later activation of the same identity reuses the already-attached set.
type Binder struct {
	channel  domain.Channel
	sessions domain.SessionRegistry
	router   *router.Router
	logger   *logging.Logger
	bus      eventbus.Bus
}

// New creates a binder. The event bus is optional.
func New(channel domain.Channel, sessions domain.SessionRegistry, eventRouter *router.Router, logger *logging.Logger, bus eventbus.Bus) *Binder {
	return &Binder{
		channel:  channel,
		sessions: sessions,
		router:   eventRouter,
		logger:   logger,
		bus:      bus,
	}
}

// Activate brings one client activation online:
//
//  1. Establish the channel if needed. Failure propagates before the
//     registry is touched.
//  2. Count the activation; the registry reports whether this identity is
//     newly bound.
//  3. For a newly bound identity, attach its full router handler set. A
//     rebind would double every delivery, so this is skipped otherwise.
//  4. Send the registration frame upstream. This happens on every
//     activation, reactivations included, because the parameters may have
//     changed since the identity last registered.
func (b *Binder) Activate(ctx context.Context, reg domain.Registration, sink domain.Sink) error {
	if err := b.channel.EnsureConnected(ctx); err != nil {
		return err
	}

	first := b.sessions.Connect(reg.ID)

	if first {
		for messageType, handler := range b.router.Handlers(reg.ID, reg.Parameters, sink) {
			b.channel.Subscribe(messageType, handler)
		}

		b.logger.Info("listeners attached",
			"client_id", reg.ID,
			"active_count", b.sessions.Count(),
		)
	} else {
		b.logger.Info("reactivated with existing listeners",
			"client_id", reg.ID,
			"active_count", b.sessions.Count(),
		)
	}

	if err := b.channel.Emit(ctx, domain.MessageTypeRegistration, reg.WirePayload()); err != nil {
		return err
	}

	if b.bus != nil {
		eventType := eventbus.EventClientReactivated
		if first {
			eventType = eventbus.EventClientBound
		}
		b.bus.Publish(eventbus.NewEvent(eventType, "binder", reg.ID))
	}

	return nil
}

// Deactivate takes one client activation offline. The deregistration frame
// is always sent; whether the activation is also released from the registry
// is the caller's policy (a temporary toggle keeps the count, a genuine
// shutdown releases it). Releasing the last activation tears the channel
// down and forgets every identity.
func (b *Binder) Deactivate(ctx context.Context, id domain.ClientID, release bool) error {
	emitErr := b.channel.Emit(ctx, domain.MessageTypeDeregistration, domain.DeregistrationPayload{ID: id})
	if emitErr != nil {
		b.logger.Warn("failed to send deregistration", "client_id", id, "error", emitErr)
	}

	if release {
		b.sessions.Disconnect(id)
	}

	b.logger.Info("deactivated",
		"client_id", id,
		"released", release,
		"active_count", b.sessions.Count(),
	)

	if b.bus != nil {
		b.bus.Publish(eventbus.NewEvent(eventbus.EventClientDeactivated, "binder", id))
	}

	return emitErr
}
