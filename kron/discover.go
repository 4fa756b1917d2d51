package kron

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/emusa/energymon/meter"
	"github.com/emusa/energymon/modbusaccess"
	"github.com/grid-x/modbus"
)

// candidate is one port/slave combination tried during discovery.
type candidate struct {
	Port  string
	Slave byte
}

// detection is a successful handshake.
type detection struct {
	Port       string
	Slave      byte
	Identifier string
}

// probeFunc attempts a handshake with one candidate and returns the
// identifier the device reported. Injected so discovery is testable without
// serial hardware.
type probeFunc func(ctx context.Context, settings SerialSettings, c candidate) (string, error)

// discover walks the candidate ports and slave addresses and returns the
// first combination whose identifier matches the expected prefix. The probe
// budget is the caller's context plus the per-probe serial timeout.
func discover(ctx context.Context, settings SerialSettings, probe probeFunc) (detection, error) {
	logger := slog.Default().With("component", "kron")

	for _, port := range settings.Ports {
		for _, slave := range settings.SlaveIDs {
			if err := ctx.Err(); err != nil {
				return detection{}, &meter.ConnectError{Err: err}
			}

			c := candidate{Port: port, Slave: slave}
			identifier, err := probe(ctx, settings, c)
			if err != nil {
				logger.Debug("Probe failed", "port", port, "slave", slave, "error", err)
				continue
			}
			if settings.ExpectedPrefix != "" &&
				!strings.HasPrefix(strings.ToUpper(identifier), strings.ToUpper(settings.ExpectedPrefix)) {
				logger.Debug("Probe answered with unexpected identifier", "port", port, "slave", slave, "identifier", identifier)
				continue
			}
			return detection{Port: port, Slave: slave, Identifier: identifier}, nil
		}
	}
	return detection{}, meter.ErrNoDeviceFound
}

// probeSerial is the hardware prober: a short-lived RTU connection reading
// the identifier registers.
func probeSerial(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
	handler := modbus.NewRTUClientHandler(c.Port)
	handler.BaudRate = settings.BaudRate
	handler.DataBits = settings.DataBits
	handler.Parity = settings.Parity
	handler.StopBits = settings.StopBits
	handler.SlaveID = c.Slave
	handler.Timeout = settings.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < handler.Timeout {
			handler.Timeout = remaining
		}
	}

	if err := handler.Connect(); err != nil {
		return "", err
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	words := settings.ProbeWords
	if words == 0 {
		words = 2
	}

	var (
		raw []byte
		err error
	)
	if settings.ProbeFunctionCode == 4 {
		raw, err = client.ReadInputRegisters(settings.ProbeAddress, words)
	} else {
		raw, err = client.ReadHoldingRegisters(settings.ProbeAddress, words)
	}
	if err != nil {
		return "", err
	}
	return modbusaccess.DecodeString(raw), nil
}
