package domain

import "context"

// EventHandler consumes one inbound channel frame. Handlers attached to the
// channel stay attached until the whole channel is torn down.
type EventHandler func(ctx context.Context, msg *Message) error

// Channel is the single shared communication path to the upstream bot
// process. There is no per-handler unsubscribe: once attached, a handler
// only goes away when Teardown destroys the channel.
type Channel interface {
	// EnsureConnected establishes the channel if needed. Calling it on a
	// live channel is a no-op.
	EnsureConnected(ctx context.Context) error

	// Emit sends a frame of the given type upstream.
	Emit(ctx context.Context, messageType MessageType, payload any) error

	// Subscribe attaches a handler for inbound frames of the given type.
	Subscribe(messageType MessageType, handler EventHandler)

	// Teardown closes the channel and drops every attached handler. It must
	// only run once no client activation remains.
	Teardown() error

	// Connected reports whether the channel is currently live.
	Connected() bool
}
