package models

// TransportKind selects which connector implementation reaches an endpoint.
type TransportKind string

const (
	TransportSSH    TransportKind = "ssh"
	TransportTelnet TransportKind = "telnet"
	TransportShell  TransportKind = "shell"
	TransportSerial TransportKind = "serial"
)

// EndpointRecord describes a managed endpoint loaded from the endpoint
// inventory at startup. Records are immutable for the duration of a
// monitoring cycle.
type EndpointRecord struct {
	ID               string        `yaml:"id"`
	Name             string        `yaml:"name"`
	Address          string        `yaml:"address"`
	Port             int           `yaml:"port"`
	ConnectionType   TransportKind `yaml:"connection_type"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	KeyFile          string        `yaml:"key_file"`
	SerialDevice     string        `yaml:"serial_device"`
	BaudRate         int           `yaml:"baud_rate"`
	ExpectedServices []string      `yaml:"expected_services"`
	Description      string        `yaml:"description"`
}

// DisplayName returns the human-facing name, falling back to the ID.
func (e EndpointRecord) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}
