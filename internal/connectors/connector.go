package connectors

import "context"

// Connector is a session to a single endpoint over one transport. A
// connector is not safe for concurrent use; the remediation loop creates one
// per endpoint per cycle.
//
// Execute before a successful Connect returns ErrNotConnected. Disconnect is
// idempotent and safe to call on a never-connected session.
type Connector interface {
	Connect(ctx context.Context) error
	Execute(ctx context.Context, command string) (string, error)
	Disconnect() error
}
