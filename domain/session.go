package domain

// SessionRegistry tracks how many client activations are live and which
// identities currently have listeners attached to the shared channel. The
// two axes move independently: the activation count rises and falls with
// every activate/deactivate, while the bound set only ever grows until the
// whole channel is torn down.
type SessionRegistry interface {
	// Connect counts one activation. It reports true iff the identity was
	// not yet bound, which is the sole signal to attach event listeners.
	Connect(id ClientID) bool

	// Disconnect counts one deactivation. When the count reaches zero the
	// bound set is cleared and the channel teardown hook runs. Calling it
	// at zero is a no-op.
	Disconnect(id ClientID)

	// IsRegistered reports whether the identity has listeners attached.
	IsRegistered(id ClientID) bool

	// Count returns the number of live activations.
	Count() int

	// RegisteredIDs returns the bound identities in binding order.
	RegisteredIDs() []ClientID
}
