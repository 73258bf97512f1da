package registry

import (
	"sync"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
)

// Registry is the process-wide session registry for the shared channel.
//
// Listener attachment on the channel is irreversible short of destroying
// the channel, so the registry deliberately keeps two independent axes:
// the activation count, which every Connect/Disconnect pair moves, and the
// bound identity set, which only grows and is only ever cleared wholesale
// when the count falls back to zero. Removing a single identity from the
// bound set while the channel lives would misreport listeners that are
// still physically attached.
type Registry struct {
	mu       sync.Mutex
	active   int
	bound    map[domain.ClientID]struct{}
	order    []domain.ClientID
	teardown func()
	logger   *logging.Logger
}

// New creates an empty registry.
func New(logger *logging.Logger) *Registry {
	return &Registry{
		bound:  make(map[domain.ClientID]struct{}),
		logger: logger,
	}
}

// OnTeardown sets the hook invoked when the activation count reaches zero.
// The intended hook is the channel gateway's Teardown.
func (r *Registry) OnTeardown(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardown = fn
}

// Connect counts one activation for id. It returns true iff id was not yet
// bound, binding it as a side effect. A false return means listeners for
// id are already attached and must not be attached again.
func (r *Registry) Connect(id domain.ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active++

	if _, exists := r.bound[id]; exists {
		r.logger.Debug("identity already bound",
			"client_id", id,
			"active_count", r.active,
		)
		return false
	}

	r.bound[id] = struct{}{}
	r.order = append(r.order, id)

	r.logger.Info("identity bound",
		"client_id", id,
		"active_count", r.active,
		"bound_count", len(r.bound),
	)

	return true
}

// Disconnect counts one deactivation for id. At zero it clears the bound
// set and runs the teardown hook; the hook fires at most once per channel
// lifetime because the count cannot reach zero twice without an interleaved
// Connect. Calling Disconnect when nothing is active is a no-op.
func (r *Registry) Disconnect(id domain.ClientID) {
	r.mu.Lock()

	if r.active == 0 {
		r.mu.Unlock()
		r.logger.Warn("disconnect with no live activation", "client_id", id)
		return
	}

	r.active--

	if r.active > 0 {
		// Listeners for id stay physically attached to the live channel.
		r.logger.Info("activation released",
			"client_id", id,
			"active_count", r.active,
		)
		r.mu.Unlock()
		return
	}

	r.bound = make(map[domain.ClientID]struct{})
	r.order = nil
	fn := r.teardown
	r.mu.Unlock()

	r.logger.Info("last activation released, tearing down channel", "client_id", id)

	if fn != nil {
		fn()
	}
}

// IsRegistered reports whether id currently has listeners attached.
func (r *Registry) IsRegistered(id domain.ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bound[id]
	return ok
}

// Count returns the number of live activations.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// RegisteredIDs returns the bound identities in binding order.
func (r *Registry) RegisteredIDs() []domain.ClientID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]domain.ClientID, len(r.order))
	copy(ids, r.order)
	return ids
}
