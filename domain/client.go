package domain

import "context"

// ClientID is the stable identity of one logical trigger client,
// independent of how many times it has been activated.
type ClientID string

// Credentials references the upstream bot credentials a client registers with.
type Credentials struct {
	Token string `json:"token"`
}

// Registration carries everything upstream needs to know about one client
// activation. It is sent on every activation, including reactivations,
// so upstream always holds the latest parameters.
type Registration struct {
	ID          ClientID       `json:"id"`
	Parameters  map[string]any `json:"parameters"`
	Active      bool           `json:"active"`
	Credentials Credentials    `json:"credentialsRef"`
}

// RegistrationPayload is the wire shape of a registration frame.
type RegistrationPayload struct {
	Parameters     map[string]any `json:"parameters"`
	Active         bool           `json:"active"`
	CredentialsRef Credentials    `json:"credentialsRef"`
	Token          string         `json:"token"`
	ID             ClientID       `json:"id"`
}

// DeregistrationPayload is the wire shape of a deregistration frame.
type DeregistrationPayload struct {
	ID ClientID `json:"id"`
}

// WirePayload builds the registration frame for this registration.
func (r Registration) WirePayload() RegistrationPayload {
	return RegistrationPayload{
		Parameters:     r.Parameters,
		Active:         r.Active,
		CredentialsRef: r.Credentials,
		Token:          r.Credentials.Token,
		ID:             r.ID,
	}
}

// Record is one normalized output record handed to a client's sink.
type Record map[string]any

// Sink receives normalized event batches for one client. The router emits
// single-record batches, one per matching inbound event.
type Sink interface {
	Emit(ctx context.Context, batch []Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch []Record) error

func (f SinkFunc) Emit(ctx context.Context, batch []Record) error {
	return f(ctx, batch)
}
