package kron

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/emusa/energymon/meter"
	"github.com/emusa/energymon/telemetry"
)

// Simulated produces plausible CH30 telemetry without hardware: a balanced
// three-phase system with slow sinusoidal drift, bounded noise and
// monotonically accumulating energy counters. The noise source is reseeded
// from the read timestamp, so a given instant always yields the same sample.
type Simulated struct {
	baseLN float64 // phase-to-neutral volts
	baseLL float64 // line-to-line volts

	epoch  time.Time
	kwhA   float64
	kwhB   float64
	lastAt time.Time
	lastKW float64

	now func() time.Time
}

var _ meter.Source = (*Simulated)(nil)

func NewSimulated() *Simulated {
	now := time.Now()
	return &Simulated{
		baseLN: 220.0,
		baseLL: 380.0,
		epoch:  now,
		kwhA:   12345.0,
		kwhB:   23456.0,
		lastAt: now,
		lastKW: 20.0,
		now:    time.Now,
	}
}

// Connect never fails for the simulator.
func (s *Simulated) Connect(ctx context.Context) error { return nil }

func (s *Simulated) Close() error { return nil }

// ReadAll synthesizes one complete sample. There is no failure path.
func (s *Simulated) ReadAll(ctx context.Context) (telemetry.RawSample, error) {
	t := s.now()
	rng := rand.New(rand.NewSource(t.UnixNano()))
	elapsed := t.Sub(s.epoch).Seconds()

	wave := func(amp, speed, phase float64) float64 {
		return amp * math.Sin(2*math.Pi*speed*elapsed+phase)
	}
	noisy := func(base, noise float64) float64 {
		return base + (rng.Float64()*2-1)*noise
	}

	const third = 2 * math.Pi / 3

	ln1 := noisy(s.baseLN+wave(2.5, 0.01, 0), 0.8)
	ln2 := noisy(s.baseLN+wave(2.5, 0.01, third), 0.8)
	ln3 := noisy(s.baseLN+wave(2.5, 0.01, -third), 0.8)

	llRS := noisy(s.baseLL+wave(5.0, 0.01, 0), 0.8)
	llST := noisy(s.baseLL+wave(5.0, 0.01, third), 0.8)
	llTR := noisy(s.baseLL+wave(5.0, 0.01, -third), 0.8)
	llAvg := (llRS + llST + llTR) / 3

	i1 := math.Max(0, noisy(8.0+wave(2.0, 0.02, 0), 0.2))
	i2 := math.Max(0, noisy(7.5+wave(1.8, 0.018, 1.0), 0.2))
	i3 := math.Max(0, noisy(7.8+wave(1.6, 0.017, -0.8), 0.2))
	iAvg := (i1 + i2 + i3) / 3

	fp := math.Min(1.0, math.Max(0.7, noisy(0.95, 0.02)))

	// smooth the active power so it moves like a real load
	kw := math.Max(0, math.Sqrt(3)*llAvg*iAvg*fp/1000.0)
	kw = 0.8*s.lastKW + 0.2*kw
	s.lastKW = kw

	// integrate energy since the previous cycle; counters only move forward
	dtHours := t.Sub(s.lastAt).Hours()
	if dtHours > 0 {
		s.kwhA += kw * dtHours
		s.kwhB += kw * 0.5 * dtHours
	}
	s.lastAt = t

	freq := noisy(60.0, 0.05)

	return telemetry.RawSample{
		telemetry.KeyVoltagePhA:       ln1,
		telemetry.KeyVoltagePhB:       ln2,
		telemetry.KeyVoltagePhC:       ln3,
		telemetry.KeyVoltageLineRS:    llRS,
		telemetry.KeyVoltageLineST:    llST,
		telemetry.KeyVoltageLineTR:    llTR,
		telemetry.KeyCurrentPhA:       i1,
		telemetry.KeyCurrentPhB:       i2,
		telemetry.KeyCurrentPhC:       i3,
		telemetry.KeyPowerTotalActive: kw,
		telemetry.KeyPowerFactor:      fp,
		telemetry.KeyFrequency:        freq,
		telemetry.KeyEnergyChannelA:   s.kwhA,
		telemetry.KeyEnergyChannelB:   s.kwhB,
	}, nil
}
