package connectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/ariesstack/aries-engine/internal/models"
)

// SerialConnector talks to network gear over a local serial console. Output
// is burst-oriented; after writing a command the connector sleeps briefly,
// then drains the port until reads come back empty.
type SerialConnector struct {
	endpoint models.EndpointRecord
	port     serial.Port
	settle   time.Duration
}

// NewSerialConnector prepares a serial console session for the endpoint.
func NewSerialConnector(ep models.EndpointRecord) *SerialConnector {
	return &SerialConnector{endpoint: ep, settle: time.Second}
}

// Connect opens the configured device and flushes stale input.
func (c *SerialConnector) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.endpoint.SerialDevice == "" {
		return fmt.Errorf("endpoint %s: no serial device configured", c.endpoint.ID)
	}

	baud := c.endpoint.BaudRate
	if baud == 0 {
		baud = 9600
	}
	port, err := serial.Open(c.endpoint.SerialDevice, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("open serial device %s: %w", c.endpoint.SerialDevice, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return fmt.Errorf("reset input buffer: %w", err)
	}

	c.port = port
	return nil
}

// Execute writes the command followed by a newline, waits for the device to
// respond, and returns everything read from the console.
func (c *SerialConnector) Execute(ctx context.Context, command string) (string, error) {
	if c.port == nil {
		return "", ErrNotConnected
	}

	if _, err := c.port.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.settle):
	}

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := c.port.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
			continue
		}
		if err != nil {
			if sb.Len() > 0 {
				break
			}
			return "", fmt.Errorf("read console: %w", err)
		}
		// Zero-byte read means the read timeout elapsed with no data.
		break
	}
	return trimEchoAndPrompt(sb.String(), command), nil
}

// Disconnect closes the port. Safe to call repeatedly.
func (c *SerialConnector) Disconnect() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
