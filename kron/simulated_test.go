package kron

import (
	"context"
	"testing"
	"time"

	"github.com/emusa/energymon/telemetry"
)

func TestSimulatedProducesCompleteSamples(t *testing.T) {
	s := NewSimulated()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	sample, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	keys := []string{
		telemetry.KeyVoltagePhA, telemetry.KeyVoltagePhB, telemetry.KeyVoltagePhC,
		telemetry.KeyVoltageLineRS, telemetry.KeyVoltageLineST, telemetry.KeyVoltageLineTR,
		telemetry.KeyCurrentPhA, telemetry.KeyCurrentPhB, telemetry.KeyCurrentPhC,
		telemetry.KeyPowerTotalActive, telemetry.KeyPowerFactor, telemetry.KeyFrequency,
		telemetry.KeyEnergyChannelA, telemetry.KeyEnergyChannelB,
	}
	for _, k := range keys {
		if _, ok := sample[k]; !ok {
			t.Errorf("missing %q", k)
		}
	}
	if len(sample) != len(keys) {
		t.Errorf("sample has %d entries, want %d", len(sample), len(keys))
	}
}

func TestSimulatedValuesStayInPlausibleRanges(t *testing.T) {
	s := NewSimulated()
	clock := time.Now()
	s.now = func() time.Time { return clock }

	for i := 0; i < 200; i++ {
		clock = clock.Add(time.Second)
		sample, err := s.ReadAll(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		checks := []struct {
			key      string
			min, max float64
		}{
			{telemetry.KeyVoltagePhA, 210, 230},
			{telemetry.KeyVoltageLineRS, 370, 390},
			{telemetry.KeyCurrentPhA, 0, 20},
			{telemetry.KeyPowerFactor, 0.7, 1.0},
			{telemetry.KeyFrequency, 59.9, 60.1},
			{telemetry.KeyPowerTotalActive, 0, 100},
		}
		for _, c := range checks {
			if v := sample[c.key]; v < c.min || v > c.max {
				t.Fatalf("cycle %d: %s = %v outside [%v, %v]", i, c.key, v, c.min, c.max)
			}
		}
	}
}

func TestSimulatedEnergyCountersOnlyIncrease(t *testing.T) {
	s := NewSimulated()
	clock := time.Now()
	s.now = func() time.Time { return clock }

	var lastA, lastB float64
	for i := 0; i < 50; i++ {
		clock = clock.Add(time.Second)
		sample, err := s.ReadAll(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		a, b := sample[telemetry.KeyEnergyChannelA], sample[telemetry.KeyEnergyChannelB]
		if i > 0 && (a < lastA || b < lastB) {
			t.Fatalf("cycle %d: energy went backwards: A %v -> %v, B %v -> %v", i, lastA, a, lastB, b)
		}
		lastA, lastB = a, b
	}

	if lastA <= 12345.0 {
		t.Errorf("channel A never accumulated: %v", lastA)
	}
	if lastB <= 23456.0 {
		t.Errorf("channel B never accumulated: %v", lastB)
	}
}

func TestSimulatedSamplesAreReproducibleForATimestamp(t *testing.T) {
	at := time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)

	read := func() telemetry.RawSample {
		s := NewSimulated()
		s.epoch = at.Add(-time.Hour)
		s.lastAt = s.epoch
		s.now = func() time.Time { return at }
		sample, err := s.ReadAll(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return sample
	}

	a, b := read(), read()
	for k, v := range a {
		if b[k] != v {
			t.Errorf("%s differs between identical runs: %v vs %v", k, v, b[k])
		}
	}
}
