package kron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emusa/energymon/meter"
)

func probeSettings() SerialSettings {
	return SerialSettings{
		Ports:          []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3"},
		SlaveIDs:       []byte{1, 2},
		Timeout:        10 * time.Millisecond,
		ExpectedPrefix: "CH30",
	}
}

func TestDiscoverBindsFirstRespondingCandidate(t *testing.T) {
	var tried []candidate
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		tried = append(tried, c)
		if c.Port == "/dev/ttyUSB2" && c.Slave == 2 {
			return "CH30 v1.2", nil
		}
		return "", errors.New("no response")
	}

	found, err := discover(context.Background(), probeSettings(), probe)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if found.Port != "/dev/ttyUSB2" || found.Slave != 2 {
		t.Errorf("bound to %s/%d, want /dev/ttyUSB2/2", found.Port, found.Slave)
	}
	// probing must stop at the first match
	last := tried[len(tried)-1]
	if last.Port != "/dev/ttyUSB2" || last.Slave != 2 {
		t.Errorf("kept probing after a match, last candidate %+v", last)
	}
}

func TestDiscoverRejectsForeignDevices(t *testing.T) {
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		return "ACME 9000", nil
	}

	_, err := discover(context.Background(), probeSettings(), probe)
	if !errors.Is(err, meter.ErrNoDeviceFound) {
		t.Errorf("got %v, want ErrNoDeviceFound when nothing matches the prefix", err)
	}
}

func TestDiscoverReportsNoDeviceWhenAllProbesFail(t *testing.T) {
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		return "", errors.New("timeout")
	}

	_, err := discover(context.Background(), probeSettings(), probe)
	if !errors.Is(err, meter.ErrNoDeviceFound) {
		t.Errorf("got %v, want ErrNoDeviceFound", err)
	}
}

func TestDiscoverPrefixMatchIgnoresCase(t *testing.T) {
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		return "ch30-E", nil
	}

	found, err := discover(context.Background(), probeSettings(), probe)
	if err != nil {
		t.Fatalf("lowercase identifier rejected: %v", err)
	}
	if found.Identifier != "ch30-E" {
		t.Errorf("identifier = %q", found.Identifier)
	}
}

func TestDiscoverEmptyPrefixAcceptsAnyResponder(t *testing.T) {
	settings := probeSettings()
	settings.ExpectedPrefix = ""
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		return "whatever", nil
	}

	if _, err := discover(context.Background(), settings, probe); err != nil {
		t.Errorf("discover failed with empty prefix: %v", err)
	}
}

func TestDiscoverStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	probes := 0
	probe := func(ctx context.Context, settings SerialSettings, c candidate) (string, error) {
		probes++
		cancel() // cancelled mid-scan
		return "", errors.New("no response")
	}

	_, err := discover(ctx, probeSettings(), probe)

	var connErr *meter.ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("got %v, want a ConnectError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation not surfaced: %v", err)
	}
	if probes != 1 {
		t.Errorf("probed %d candidates after cancellation, want 1", probes)
	}
}
