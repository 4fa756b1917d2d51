package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/emusa/energymon/telemetry"
)

// StoredReading is the persisted, flattened form of a telemetry.Reading.
// Unavailable measurements become NULL columns, never zeroes, so exports and
// reports can tell "no data" from "measured zero". UploadAttemptCount tracks
// delivery to the remote data platform.
type StoredReading struct {
	ID      uint      `gorm:"primarykey"`
	Time    time.Time `gorm:"index"`
	MeterID uuid.UUID

	VoltagePhA *float64
	VoltagePhB *float64
	VoltagePhC *float64

	VoltageLineRS *float64
	VoltageLineST *float64
	VoltageLineTR *float64

	CurrentPhA *float64
	CurrentPhB *float64
	CurrentPhC *float64

	PowerTotalActive *float64
	PowerFactor      *float64
	Frequency        *float64

	EnergyChannelA          *float64
	EnergyChannelB          *float64
	EnergyChannelAAnomalous bool
	EnergyChannelBAnomalous bool

	UploadAttemptCount uint
}

func newStoredReading(meterID uuid.UUID, r telemetry.Reading) StoredReading {
	return StoredReading{
		Time:    r.Time,
		MeterID: meterID,

		VoltagePhA: column(r.VoltagePhA),
		VoltagePhB: column(r.VoltagePhB),
		VoltagePhC: column(r.VoltagePhC),

		VoltageLineRS: column(r.VoltageLineRS),
		VoltageLineST: column(r.VoltageLineST),
		VoltageLineTR: column(r.VoltageLineTR),

		CurrentPhA: column(r.CurrentPhA),
		CurrentPhB: column(r.CurrentPhB),
		CurrentPhC: column(r.CurrentPhC),

		PowerTotalActive: column(r.PowerTotalActive),
		PowerFactor:      column(r.PowerFactor),
		Frequency:        column(r.Frequency),

		EnergyChannelA:          column(r.EnergyChannelA),
		EnergyChannelB:          column(r.EnergyChannelB),
		EnergyChannelAAnomalous: r.EnergyChannelA.Anomalous,
		EnergyChannelBAnomalous: r.EnergyChannelB.Anomalous,

		UploadAttemptCount: 0,
	}
}

// Reading reconstructs the in-memory record, for the report generator.
func (s StoredReading) Reading() telemetry.Reading {
	return telemetry.Reading{
		Time: s.Time,

		VoltagePhA: measurement(s.VoltagePhA, false),
		VoltagePhB: measurement(s.VoltagePhB, false),
		VoltagePhC: measurement(s.VoltagePhC, false),

		VoltageLineRS: measurement(s.VoltageLineRS, false),
		VoltageLineST: measurement(s.VoltageLineST, false),
		VoltageLineTR: measurement(s.VoltageLineTR, false),

		CurrentPhA: measurement(s.CurrentPhA, false),
		CurrentPhB: measurement(s.CurrentPhB, false),
		CurrentPhC: measurement(s.CurrentPhC, false),

		PowerTotalActive: measurement(s.PowerTotalActive, false),
		PowerFactor:      measurement(s.PowerFactor, false),
		Frequency:        measurement(s.Frequency, false),

		EnergyChannelA: measurement(s.EnergyChannelA, s.EnergyChannelAAnomalous),
		EnergyChannelB: measurement(s.EnergyChannelB, s.EnergyChannelBAnomalous),
	}
}

func column(m telemetry.Measurement) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func measurement(p *float64, anomalous bool) telemetry.Measurement {
	if p == nil {
		return telemetry.Unavailable()
	}
	m := telemetry.Available(*p)
	m.Anomalous = anomalous
	return m
}
