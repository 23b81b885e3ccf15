package connectors

import (
	"errors"
	"fmt"

	"github.com/ariesstack/aries-engine/internal/models"
)

var (
	// ErrNotConnected is returned when Execute is called before Connect.
	ErrNotConnected = errors.New("connectors: not connected")
	// ErrUnsupportedTransport is returned for unknown connection types.
	ErrUnsupportedTransport = errors.New("connectors: unsupported transport")
)

// Factory builds a fresh Connector for an endpoint.
type Factory func(ep models.EndpointRecord) (Connector, error)

// ForEndpoint selects a connector implementation from the endpoint's
// connection type. Unknown types fail closed rather than defaulting to a
// local shell.
func ForEndpoint(ep models.EndpointRecord) (Connector, error) {
	switch ep.ConnectionType {
	case models.TransportSSH:
		return NewSSHConnector(ep), nil
	case models.TransportTelnet:
		return NewTelnetConnector(ep), nil
	case models.TransportShell:
		return NewShellConnector(), nil
	case models.TransportSerial:
		return NewSerialConnector(ep), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, ep.ConnectionType)
	}
}
