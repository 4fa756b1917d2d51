package dataplatform

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/emusa/energymon/repository"
)

func ptr(v float64) *float64 { return &v }

func TestConvertReadings(t *testing.T) {
	at := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	meterID := uuid.New()

	stored := []repository.StoredReading{{
		Time:    at,
		MeterID: meterID,

		VoltagePhA:    ptr(220.1),
		VoltageLineRS: ptr(380.0),
		VoltageLineST: ptr(382.0),
		// TR unavailable

		PowerTotalActive:        ptr(21.5),
		EnergyChannelA:          ptr(12345.6),
		EnergyChannelAAnomalous: true,
	}}

	converted := convertReadings(stored)
	if len(converted) != 1 {
		t.Fatalf("got %d rows", len(converted))
	}
	row := converted[0]

	if row.MeterID != meterID || !row.Time.Equal(at) {
		t.Errorf("identity columns wrong: %+v", row)
	}
	if row.VoltagePhB != nil {
		t.Error("unavailable column must stay NULL")
	}
	if row.VoltagePhA == nil || *row.VoltagePhA != 220.1 {
		t.Errorf("voltage_l1 = %v", row.VoltagePhA)
	}
	if !row.EnergyChannelAAnomalous {
		t.Error("anomaly flag lost")
	}
	// the derived column averages whatever line voltages are present
	if row.VoltageLineAverage == nil || *row.VoltageLineAverage != 381.0 {
		t.Errorf("voltage_line_average = %v, want 381", row.VoltageLineAverage)
	}
}

func TestConvertReadingsNoLineVoltages(t *testing.T) {
	converted := convertReadings([]repository.StoredReading{{Time: time.Now()}})
	if converted[0].VoltageLineAverage != nil {
		t.Error("derived average fabricated from no data")
	}
}
