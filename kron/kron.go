// Package kron talks to KRON CH30 power meters over Modbus RTU, and provides
// a simulated stand-in with the same contract for development without
// hardware.
package kron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emusa/energymon/meter"
	"github.com/emusa/energymon/modbusaccess"
	"github.com/emusa/energymon/registermap"
	"github.com/emusa/energymon/telemetry"
	"github.com/grid-x/modbus"
)

// SerialSettings carries the field-bus parameters and the probe budget for
// device discovery. All values are resolved once at startup.
type SerialSettings struct {
	Ports    []string // candidate serial devices, probed in order
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int
	SlaveIDs []byte // candidate modbus slave addresses, probed per port
	Timeout  time.Duration

	// Probe describes the handshake read used during discovery: the CH30
	// publishes its model string at holding register 0.
	ProbeFunctionCode uint8
	ProbeAddress      uint16
	ProbeWords        uint16
	ExpectedPrefix    string
}

// Meter reads a physical CH30 through a serial Modbus RTU link. Not safe for
// concurrent use; the acquisition loop owns it exclusively.
type Meter struct {
	registers *registermap.Map
	settings  SerialSettings

	handler         *modbus.RTUClientHandler
	client          modbus.Client
	shouldReconnect bool

	// bound link, fixed by discovery
	port  string
	slave byte

	probe  probeFunc
	logger *slog.Logger
}

var _ meter.Source = (*Meter)(nil)

// New creates an unconnected meter. Call Connect before ReadAll.
func New(registers *registermap.Map, settings SerialSettings) *Meter {
	return &Meter{
		registers: registers,
		settings:  settings,
		probe:     probeSerial,
		logger:    slog.Default().With("component", "kron"),
	}
}

// Connect runs the discovery phase over the candidate ports and slave
// addresses and binds the meter to the first combination that handshakes.
func (m *Meter) Connect(ctx context.Context) error {
	found, err := discover(ctx, m.settings, m.probe)
	if err != nil {
		return err
	}

	m.port = found.Port
	m.slave = found.Slave
	m.logger.Info("Detected CH30 meter", "port", m.port, "slave", m.slave, "identifier", found.Identifier)

	if err := m.dial(); err != nil {
		return &meter.ConnectError{Err: err}
	}

	// one test read so a half-dead link fails here rather than mid-polling
	if len(m.registers.All()) > 0 {
		if _, err := m.readRegister(m.registers.All()[0]); err != nil {
			m.Close()
			return &meter.ConnectError{Err: fmt.Errorf("test read: %w", err)}
		}
	}

	return nil
}

// dial opens the serial handler for the bound port/slave.
func (m *Meter) dial() error {
	handler := modbus.NewRTUClientHandler(m.port)
	handler.BaudRate = m.settings.BaudRate
	handler.DataBits = m.settings.DataBits
	handler.Parity = m.settings.Parity
	handler.StopBits = m.settings.StopBits
	handler.SlaveID = m.slave
	handler.Timeout = m.settings.Timeout

	if err := handler.Connect(); err != nil {
		return fmt.Errorf("open %s: %w", m.port, err)
	}

	m.handler = handler
	m.client = modbus.NewClient(handler)
	m.shouldReconnect = false
	return nil
}

// reconnectIfNecessary re-dials the serial link after a cycle that saw
// errors. The port assignment from discovery is kept.
func (m *Meter) reconnectIfNecessary() error {
	if !m.shouldReconnect {
		return nil
	}
	if m.handler != nil {
		m.handler.Close()
	}
	if err := m.dial(); err != nil {
		return err
	}
	m.logger.Info("Reconnected serial link", "port", m.port)
	return nil
}

// ReadAll performs one polling cycle over every register in the map. A
// register that fails to read is left out of the sample; the cycle itself
// only fails when no register could be read at all.
func (m *Meter) ReadAll(ctx context.Context) (telemetry.RawSample, error) {
	if m.client == nil {
		return nil, &meter.ReadError{Kind: meter.ReadProtocol, Err: errors.New("not connected")}
	}
	if err := m.reconnectIfNecessary(); err != nil {
		kind := meter.ReadProtocol
		if isTimeout(err) {
			kind = meter.ReadTimeout
		}
		return nil, &meter.ReadError{Kind: kind, Err: fmt.Errorf("reconnect: %w", err)}
	}

	sample := make(telemetry.RawSample, m.registers.Len())
	var lastErr error
	for _, d := range m.registers.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := m.readRegister(d)
		if err != nil {
			// a partial response still yields a sample
			m.logger.Debug("Register read failed", "register", d.Name, "error", err)
			m.shouldReconnect = true
			lastErr = err
			continue
		}
		sample[d.Name] = value
	}

	if len(sample) == 0 && lastErr != nil {
		kind := meter.ReadProtocol
		if isTimeout(lastErr) {
			kind = meter.ReadTimeout
		}
		return nil, &meter.ReadError{Kind: kind, Err: lastErr}
	}
	return sample, nil
}

// readRegister reads and decodes a single quantity.
func (m *Meter) readRegister(d registermap.Descriptor) (float64, error) {
	var (
		raw []byte
		err error
	)
	switch d.FunctionCode {
	case 3:
		raw, err = m.client.ReadHoldingRegisters(d.Address, d.DataKind.Words())
	case 4:
		raw, err = m.client.ReadInputRegisters(d.Address, d.DataKind.Words())
	default:
		return 0, fmt.Errorf("register %q: unsupported function code %d", d.Name, d.FunctionCode)
	}
	if err != nil {
		return 0, fmt.Errorf("register %q: %w", d.Name, err)
	}
	return modbusaccess.Decode(d.DataKind, d.ByteOrder, raw)
}

// Close releases the serial port.
func (m *Meter) Close() error {
	if m.handler == nil {
		return nil
	}
	err := m.handler.Close()
	m.handler = nil
	m.client = nil
	return err
}

// isTimeout classifies a link error as "device went silent" rather than a
// protocol violation. Serial transports don't agree on a sentinel, so the
// message text is the fallback.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
